package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"imaginify/internal/apperror"

	"github.com/stripe/stripe-go/v82"
)

const maxWebhookBytes = 65536

// StripeEvents verifies and applies Stripe webhook deliveries.
type StripeEvents interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// WebhookHandler receives Stripe events.
type WebhookHandler struct {
	events StripeEvents
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(events StripeEvents) *WebhookHandler {
	return &WebhookHandler{events: events}
}

// RegisterRoutes mounts the webhook endpoint. It authenticates by signature.
func (h *WebhookHandler) RegisterRoutes(mux Router) {
	mux.Handle("POST /v1/webhooks/stripe", http.HandlerFunc(h.handleStripe))
}

// handleStripe godoc
// @Summary Receive a Stripe webhook
// @Tags webhooks
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string "invalid signature or payload"
// @Router /v1/webhooks/stripe [post]
func (h *WebhookHandler) handleStripe(w http.ResponseWriter, r *http.Request) {
	// 1. Read the raw payload; the signature covers the exact bytes
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, apperror.New("request body too large", http.StatusRequestEntityTooLarge, apperror.CodeValidation))
			return
		}
		writeError(w, r, apperror.Validation("failed to read request body"))
		return
	}

	// 2. Verify the signature
	event, err := h.events.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// 3. Apply the event
	if err := h.events.HandleEvent(r.Context(), event); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
