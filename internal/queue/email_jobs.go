package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "catering.events"
	EventsQueue    = "catering.notifications"

	EmailJobsExchange = "catering.email_jobs"
	EmailJobsQueue    = "catering.email_jobs.send"
	EmailJobsDLQ      = "catering.email_jobs.dlq"
	EmailJobsRK       = "send"
	EmailJobsDeadRK   = "dead"
)

// The service does not speak SMTP itself: email jobs are pushed to RabbitMQ
// for the mailer worker, and orders carry an email_status for reconciliation.

type orderEvent struct {
	Type     string `json:"type"`
	OrderID  int64  `json:"orderId"`
	TenantID int64  `json:"tenantId"`
	Status   string `json:"status"`
}

func EnsureEmailJobsTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EmailJobsExchange, "direct"); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(EmailJobsDLQ, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(EmailJobsDLQ, EmailJobsExchange, EmailJobsDeadRK); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(EmailJobsQueue, amqp.Table{
		"x-dead-letter-exchange":    EmailJobsExchange,
		"x-dead-letter-routing-key": EmailJobsDeadRK,
	}); err != nil {
		return err
	}
	return qc.BindQueue(EmailJobsQueue, EmailJobsExchange, EmailJobsRK)
}

// ProcessEventToJobs translates order events from the events queue into email
// jobs: a customer confirmation plus an admin alert on confirmation.
func ProcessEventToJobs(ctx context.Context, db *pgxpool.Pool, qc *Client, body []byte) error {
	if db == nil || qc == nil {
		return nil
	}

	var evt orderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	if evt.Type != "order.confirmed" {
		// other event types have no email side effect
		return nil
	}

	var (
		orderNumber   string
		customerName  string
		customerEmail string
		tenantCode    string
		tenantName    string
		contactEmail  string
	)
	if err := db.QueryRow(ctx, `
		select o.order_number, o.customer_name, o.customer_email, t.code, t.name, t.contact_email
		from orders o
		join tenants t on t.id = o.tenant_id
		where o.id = $1 and o.tenant_id = $2
	`, evt.OrderID, evt.TenantID).Scan(&orderNumber, &customerName, &customerEmail, &tenantCode, &tenantName, &contactEmail); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if to := strings.TrimSpace(customerEmail); to != "" {
		job := map[string]any{
			"kind":         "email.order_confirmation",
			"to":           to,
			"orderId":      evt.OrderID,
			"orderNumber":  orderNumber,
			"customerName": customerName,
			"tenantCode":   tenantCode,
			"tenantName":   tenantName,
			"createdAt":    now,
			"attempt":      1,
		}
		if err := qc.PublishJSON(ctx, EmailJobsExchange, EmailJobsRK, job); err != nil {
			return err
		}
	}

	if to := strings.TrimSpace(contactEmail); to != "" {
		job := map[string]any{
			"kind":        "email.admin_order_alert",
			"to":          to,
			"orderId":     evt.OrderID,
			"orderNumber": orderNumber,
			"tenantCode":  tenantCode,
			"createdAt":   now,
			"attempt":     1,
		}
		if err := qc.PublishJSON(ctx, EmailJobsExchange, EmailJobsRK, job); err != nil {
			return err
		}
	}

	// Delivery failures never block order confirmation; the status is only a
	// marker for the admin resend flow.
	_, err := db.Exec(ctx, `update orders set email_status = 'QUEUED', updated_at = now() where id = $1`, evt.OrderID)
	return err
}

// PublishOrderConfirmed is fire-and-forget: the caller logs failures and moves on.
func PublishOrderConfirmed(ctx context.Context, qc *Client, tenantID, orderID int64) error {
	if qc == nil {
		return nil
	}
	return qc.PublishJSON(ctx, EventsExchange, "order.confirmed", map[string]any{
		"type":     "order.confirmed",
		"orderId":  orderID,
		"tenantId": tenantID,
		"status":   "CONFIRMED",
	})
}
