package handler

import (
	"context"
	"net/http"

	"imaginify/internal/api/v1/dto"
	"imaginify/internal/service"

	"github.com/go-playground/validator/v10"
)

// CheckoutCreator starts a hosted checkout and returns its redirect URL.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, clerkID string, planID int) (string, error)
}

// CreditHandler handles credit balances and purchases.
type CreditHandler struct {
	creditService service.CreditService
	checkout      CheckoutCreator
	validate      *validator.Validate
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(creditService service.CreditService, checkout CheckoutCreator, v *validator.Validate) *CreditHandler {
	return &CreditHandler{creditService: creditService, checkout: checkout, validate: v}
}

// RegisterRoutes mounts v1 credit routes. The plan catalogue is public.
func (h *CreditHandler) RegisterRoutes(mux Router, authMw Middleware, limit Limiter) {
	mux.Handle("GET /v1/credits/plans", http.HandlerFunc(h.listPlans))
	mux.Handle("GET /v1/credits", authMw(http.HandlerFunc(h.getBalance)))
	mux.Handle("GET /v1/credits/transactions", authMw(http.HandlerFunc(h.listTransactions)))
	mux.Handle("POST /v1/credits/checkout", authMw(limit("credits.checkout")(http.HandlerFunc(h.checkoutCredits))))
}

// listPlans godoc
// @Summary List credit plans
// @Tags credits
// @Produce json
// @Success 200 {array} model.Plan
// @Router /v1/credits/plans [get]
func (h *CreditHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.creditService.Plans())
}

// getBalance godoc
// @Summary Get the caller's credit balance
// @Tags credits
// @Produce json
// @Success 200 {object} service.Balance
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/credits [get]
func (h *CreditHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	balance, err := h.creditService.Balance(r.Context(), clerkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// listTransactions godoc
// @Summary List the caller's purchases
// @Tags credits
// @Produce json
// @Success 200 {array} model.Transaction
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/credits/transactions [get]
func (h *CreditHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	txs, err := h.creditService.Transactions(r.Context(), clerkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// checkoutCredits godoc
// @Summary Start a Stripe Checkout session for a plan
// @Tags credits
// @Accept json
// @Produce json
// @Param payload body dto.CheckoutDTO true "Request payload"
// @Success 200 {object} dto.CheckoutResponseDTO
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 429 {object} map[string]string "rate limited"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/credits/checkout [post]
func (h *CreditHandler) checkoutCredits(w http.ResponseWriter, r *http.Request) {
	// 1. Extract subject from context
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}

	// 2. Decode and validate request body
	var req dto.CheckoutDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// 3. Create the checkout session
	url, err := h.checkout.CreateCheckoutSession(r.Context(), clerkID, req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutResponseDTO{URL: url})
}
