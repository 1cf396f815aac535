package order

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/internal/checkout"
	"tablewood-catering-services/internal/config"
	"tablewood-catering-services/internal/pricing"
	"tablewood-catering-services/internal/queue"
	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/internal/utils"
)

const pgUniqueViolation = "23505"

// Materializer turns "checkout session completed" notifications into exactly
// one Order + OrderItems + Payment, no matter how often the provider
// redelivers. The session id is the durable idempotency key; the webhook
// event log is a secondary dedup and audit layer.
type Materializer struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
	Queue  *queue.Client
}

// Outcome describes how an event was handled. Ignored outcomes are permanent
// no-ops that must still be acknowledged so the provider stops redelivering.
type Outcome struct {
	Duplicate   bool
	Ignored     bool
	Reason      string
	OrderID     int64
	OrderNumber string
}

// ProcessEvent runs after signature verification. A non-nil error means the
// failure is transient and the provider should redeliver; permanent problems
// are recorded on the event row and acknowledged.
func (m *Materializer) ProcessEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	eventID, processed, err := m.recordEvent(ctx, event)
	if err != nil {
		return Outcome{}, err
	}
	if processed {
		m.Logger.Info("duplicate webhook event acknowledged", zap.String("eventId", event.ID))
		return Outcome{Duplicate: true}, nil
	}

	if event.Type != "checkout.session.completed" {
		if err := m.markProcessed(ctx, eventID, ""); err != nil {
			return Outcome{}, err
		}
		return Outcome{Ignored: true, Reason: "unhandled event type"}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return m.ignore(ctx, eventID, "", "malformed session payload: "+err.Error())
	}
	if sess.ID == "" {
		return m.ignore(ctx, eventID, "", "session payload has no id")
	}

	// Session already materialized (earlier delivery, or a crash after commit
	// but before the processed marker was written).
	var existingOrderID int64
	var existingNumber string
	err = m.DB.QueryRow(ctx, `
		select o.id, o.order_number
		from payments p
		join orders o on o.id = p.order_id
		where p.provider_session_id = $1
	`, sess.ID).Scan(&existingOrderID, &existingNumber)
	if err == nil {
		if err := m.markProcessed(ctx, eventID, ""); err != nil {
			return Outcome{}, err
		}
		m.Logger.Info("session already has an order, acknowledged",
			zap.String("sessionId", sess.ID),
			zap.String("orderNumber", existingNumber),
		)
		return Outcome{Duplicate: true, OrderID: existingOrderID, OrderNumber: existingNumber}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Outcome{}, err
	}

	md, err := checkout.ParseMetadata(sess.Metadata)
	if err != nil {
		return m.ignore(ctx, eventID, sess.ID, err.Error())
	}

	var tenantID int64
	var tenantCode string
	err = m.DB.QueryRow(ctx, `select id, code from tenants where code = $1`, md.TenantCode).Scan(&tenantID, &tenantCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return m.ignore(ctx, eventID, sess.ID, "unknown tenant "+md.TenantCode)
	}
	if err != nil {
		return Outcome{}, err
	}

	settings, err := schedule.LoadSettings(ctx, m.DB, tenantID)
	if err != nil {
		return Outcome{}, err
	}
	cat, err := catalog.Load(ctx, m.DB, tenantID)
	if err != nil {
		return Outcome{}, err
	}
	zones, err := pricing.LoadZones(ctx, m.DB, tenantID)
	if err != nil {
		return Outcome{}, err
	}

	// Server-side re-derivation: metadata carries ids and quantities only,
	// the catalog and zone table set every amount.
	quote, err := pricing.ComputeQuote(md.Cart, cat, md.Fulfillment, md.Postcode, zones, m.fallbackFee(), settings.MinOrderValue)
	if err != nil {
		var perr *pricing.Error
		if errors.As(err, &perr) {
			return m.ignore(ctx, eventID, sess.ID, "cart no longer priceable: "+perr.Message)
		}
		return Outcome{}, err
	}

	adminNotes := make([]string, 0)
	for _, w := range quote.Warnings {
		adminNotes = append(adminNotes, w)
	}
	if !AmountsMatch(sess.AmountTotal, quote.Total) {
		m.Logger.Warn("charged amount differs from derived total",
			zap.String("sessionId", sess.ID),
			zap.Int64("charged", sess.AmountTotal),
			zap.String("derived", quote.Total.StringFixed(2)),
		)
		adminNotes = append(adminNotes,
			"Charged amount "+utils.FromMinorUnits(sess.AmountTotal).StringFixed(2)+
				" differs from derived total "+quote.Total.StringFixed(2))
	}

	out, err := m.materialize(ctx, eventID, sess, md, tenantID, tenantCode, quote, adminNotes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Concurrent delivery won the payments unique constraint.
			if err := m.markProcessed(ctx, eventID, ""); err != nil {
				return Outcome{}, err
			}
			m.Logger.Info("lost materialization race, acknowledged", zap.String("sessionId", sess.ID))
			return Outcome{Duplicate: true}, nil
		}
		return Outcome{}, err
	}

	if err := queue.PublishOrderConfirmed(ctx, m.Queue, tenantID, out.OrderID); err != nil {
		// Best effort: the order stands, email_status stays PENDING for resend.
		m.Logger.Warn("order confirmation event publish failed",
			zap.Int64("orderId", out.OrderID),
			zap.Error(err),
		)
	}

	m.Logger.Info("order materialized",
		zap.String("sessionId", sess.ID),
		zap.String("orderNumber", out.OrderNumber),
		zap.String("total", quote.Total.StringFixed(2)),
	)
	return out, nil
}

func (m *Materializer) materialize(
	ctx context.Context,
	eventID int64,
	sess stripe.CheckoutSession,
	md checkout.Metadata,
	tenantID int64,
	tenantCode string,
	quote *pricing.Quote,
	adminNotes []string,
) (Outcome, error) {
	tx, err := m.DB.Begin(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The seat is taken inside the order transaction; if the slot filled up
	// between checkout and payment the order is still recorded (the customer
	// has paid) but flagged for manual rescheduling.
	needsReschedule := false
	var scheduledFor pgtype.Timestamptz
	if err := schedule.Book(ctx, tx, tenantID, md.SlotID); err != nil {
		if errors.Is(err, schedule.ErrSlotFull) || errors.Is(err, schedule.ErrSlotNotFound) {
			needsReschedule = true
			adminNotes = append(adminNotes, "Selected time slot was no longer available; please reschedule with the customer")
		} else {
			return Outcome{}, err
		}
	}
	if !needsReschedule {
		if err := tx.QueryRow(ctx, `select start_at from time_slots where id = $1`, md.SlotID).Scan(&scheduledFor); err != nil {
			return Outcome{}, err
		}
	}

	orderNumber, err := NextOrderNumber(ctx, tx, tenantID, tenantCode)
	if err != nil {
		return Outcome{}, err
	}

	var slotID any
	if !needsReschedule {
		slotID = md.SlotID
	}
	var notes any
	if strings.TrimSpace(md.Notes) != "" {
		notes = md.Notes
	}
	var adminNote any
	if len(adminNotes) > 0 {
		adminNote = strings.Join(adminNotes, " | ")
	}

	var orderID int64
	if err := tx.QueryRow(ctx, `
		insert into orders (
			tenant_id, order_number, customer_name, customer_email, customer_phone,
			fulfillment_type, time_slot_id, scheduled_for,
			delivery_address, delivery_postcode, delivery_city,
			status, payment_status, subtotal, delivery_fee, total_amount,
			notes, admin_notes, email_status, needs_reschedule, updated_at
		) values (
			$1, $2, $3, $4, nullif($5, ''),
			$6, $7, $8,
			nullif($9, ''), nullif($10, ''), nullif($11, ''),
			'CONFIRMED', 'PAID', $12, $13, $14,
			$15, $16, 'PENDING', $17, now()
		)
		returning id
	`,
		tenantID, orderNumber, md.CustomerName, md.CustomerEmail, md.CustomerPhone,
		md.Fulfillment, slotID, scheduledFor,
		md.Address, md.Postcode, md.City,
		utils.DecimalParam(quote.Subtotal), utils.DecimalParam(quote.DeliveryFee), utils.DecimalParam(quote.Total),
		notes, adminNote, needsReschedule,
	).Scan(&orderID); err != nil {
		return Outcome{}, err
	}

	for _, line := range quote.Lines {
		if _, err := tx.Exec(ctx, `
			insert into order_items (order_id, menu_item_id, item_name, unit_price, quantity, line_total)
			values ($1, $2, $3, $4, $5, $6)
		`, orderID, line.ItemID, line.Name, utils.DecimalParam(line.UnitPrice), line.Quantity, utils.DecimalParam(line.LineTotal)); err != nil {
			return Outcome{}, err
		}
	}

	var paymentIntent any
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		paymentIntent = sess.PaymentIntent.ID
	}
	currency := strings.ToLower(string(sess.Currency))
	if currency == "" {
		currency = m.Config.Currency
	}
	if _, err := tx.Exec(ctx, `
		insert into payments (order_id, provider, provider_session_id, provider_payment_intent, amount, currency, status)
		values ($1, 'stripe', $2, $3, $4, $5, 'COMPLETED')
	`, orderID, sess.ID, paymentIntent, utils.DecimalParam(quote.Total), currency); err != nil {
		return Outcome{}, err
	}

	if _, err := tx.Exec(ctx, `
		update webhook_events set processed = true, processed_at = now() where id = $1
	`, eventID); err != nil {
		return Outcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{OrderID: orderID, OrderNumber: orderNumber}, nil
}

func (m *Materializer) recordEvent(ctx context.Context, event stripe.Event) (int64, bool, error) {
	payload := event.Data.Raw
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var id int64
	var processed bool
	err := m.DB.QueryRow(ctx, `
		insert into webhook_events (provider_event_id, event_type, payload)
		values ($1, $2, $3)
		on conflict (provider_event_id) do update set event_type = excluded.event_type
		returning id, processed
	`, event.ID, string(event.Type), payload).Scan(&id, &processed)
	return id, processed, err
}

func (m *Materializer) markProcessed(ctx context.Context, eventID int64, errorMessage string) error {
	_, err := m.DB.Exec(ctx, `
		update webhook_events
		set processed = true, processed_at = now(), error_message = nullif($2, '')
		where id = $1
	`, eventID, errorMessage)
	return err
}

// ignore acknowledges a permanently unprocessable event with enough detail
// for manual reconciliation.
func (m *Materializer) ignore(ctx context.Context, eventID int64, sessionID, reason string) (Outcome, error) {
	m.Logger.Error("webhook event unprocessable, acknowledged",
		zap.Int64("webhookEventId", eventID),
		zap.String("sessionId", sessionID),
		zap.String("reason", reason),
	)
	if err := m.markProcessed(ctx, eventID, reason); err != nil {
		return Outcome{}, err
	}
	return Outcome{Ignored: true, Reason: reason}, nil
}

func (m *Materializer) fallbackFee() decimal.Decimal {
	fee, err := decimal.NewFromString(m.Config.FallbackDeliveryFee)
	if err != nil {
		return decimal.RequireFromString("10.00")
	}
	return fee
}

// AmountsMatch compares the provider's charged minor-unit amount with the
// server-derived total.
func AmountsMatch(chargedMinorUnits int64, derivedTotal decimal.Decimal) bool {
	return chargedMinorUnits == utils.MinorUnits(derivedTotal)
}
