package handlers

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"tablewood-catering-services/pkg/response"
)

const webhookMaxBodyBytes = 1 << 20

// StripeWebhook receives payment events. Responses follow the provider's
// retry contract: 2xx acknowledges (including permanent no-ops), 400 rejects
// bad signatures, 5xx asks for redelivery on transient faults.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Failed to read payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.Config.StripeWebhookSecret)
	if err != nil {
		h.Logger.Warn("webhook signature verification failed", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Signature verification failed")
		return
	}

	outcome, err := h.Materializer.ProcessEvent(r.Context(), event)
	if err != nil {
		h.Logger.Error("webhook processing failed, requesting redelivery",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "PROCESSING_FAILED", "Temporary failure, please retry")
		return
	}

	response.Success(w, map[string]any{
		"received":  true,
		"duplicate": outcome.Duplicate,
		"ignored":   outcome.Ignored,
	})
}
