package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"tablewood-catering-services/internal/config"
	"tablewood-catering-services/internal/http/handlers"
	"tablewood-catering-services/internal/middleware"
	"tablewood-catering-services/internal/queue"
	"tablewood-catering-services/internal/storage"
	"tablewood-catering-services/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func NewRouter(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config, queueClient *queue.Client, store *storage.ObjectStore, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := handlers.New(db, logger, cfg, queueClient, store)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/public/{tenantCode}", func(r chi.Router) {
		r.Get("/menu", h.PublicMenu)
		r.Get("/slots", h.PublicSlots)
		r.Post("/quote", h.PublicQuote)
		r.Post("/checkout", h.CreateCheckoutSession)
		r.Get("/checkout-session/{sessionID}", h.PublicOrderBySession)
		r.Get("/orders/{orderNumber}", h.PublicOrderStatus)
		r.Post("/quote-requests", h.CreateQuoteRequest)
	})

	// Stripe signs the raw body; this route stays outside CORS-sensitive trees.
	r.Post("/api/webhooks/stripe", h.StripeWebhook)

	r.Post("/api/admin/auth/login", h.AdminLogin)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWTSecret))

		r.Get("/me", h.AdminMe)

		r.Get("/menu-items", h.AdminListMenuItems)
		r.Post("/menu-items", h.AdminCreateMenuItem)
		r.Post("/menu-items/bulk", h.AdminBulkMenuAction)
		r.Put("/menu-items/{itemID}", h.AdminUpdateMenuItem)
		r.Delete("/menu-items/{itemID}", h.AdminDeleteMenuItem)
		r.Post("/menu-items/{itemID}/photo", h.AdminUploadMenuPhoto)

		r.Get("/categories", h.AdminListCategories)
		r.Post("/categories", h.AdminCreateCategory)
		r.Put("/categories/{categoryID}", h.AdminUpdateCategory)
		r.Delete("/categories/{categoryID}", h.AdminDeleteCategory)

		r.Get("/orders", h.AdminListOrders)
		r.Get("/orders/export", h.AdminExportOrders)
		r.Get("/orders/{orderID}", h.AdminOrderDetail)
		r.Get("/orders/{orderID}/receipt", h.AdminOrderReceipt)
		r.Patch("/orders/{orderID}/status", h.AdminUpdateOrderStatus)
		r.Patch("/orders/{orderID}/notes", h.AdminUpdateOrderNotes)
		r.Patch("/orders/{orderID}/payment-status", h.AdminUpdatePaymentStatus)
		r.Post("/orders/{orderID}/resend-email", h.AdminResendOrderEmail)

		r.Get("/quote-requests", h.AdminListQuoteRequests)
		r.Patch("/quote-requests/{quoteID}", h.AdminUpdateQuoteRequest)

		r.Get("/settings", h.AdminGetSettings)
		r.Put("/settings", h.AdminUpdateSettings)

		r.Get("/zones", h.AdminListZones)
		r.Post("/zones", h.AdminCreateZone)
		r.Put("/zones/{zoneID}", h.AdminUpdateZone)
		r.Delete("/zones/{zoneID}", h.AdminDeleteZone)
	})

	r.Get("/ws/admin/orders", wsServer.AdminOrdersWS)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
