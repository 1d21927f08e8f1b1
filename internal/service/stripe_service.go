package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"imaginify/internal/apperror"
	"imaginify/internal/model"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds the Stripe credentials and redirect base.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	AppURL        string
}

// StripeService sells credit packages through Stripe Checkout.
type StripeService struct {
	cfg        StripeConfig
	userRepo   repository.UserRepository
	txRepo     repository.TransactionRepository
	events     EventEmitter
	metrics    CreditMetrics
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	logger     zerolog.Logger
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg StripeConfig, userRepo repository.UserRepository, txRepo repository.TransactionRepository, events EventEmitter, metrics CreditMetrics, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.SecretKey
	if events == nil {
		events = (*pubsub.Emitter)(nil)
	}
	if metrics == nil {
		metrics = noopCreditMetrics{}
	}
	return &StripeService{
		cfg:        cfg,
		userRepo:   userRepo,
		txRepo:     txRepo,
		events:     events,
		metrics:    metrics,
		newSession: checkoutsession.New,
		logger:     logger.With().Str("service", "StripeService").Logger(),
	}
}

// CreateCheckoutSession starts a one-off payment for a credit plan and
// returns the Checkout URL.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, clerkID string, planID int) (string, error) {
	plan, ok := model.PlanByID(planID)
	if !ok {
		return "", apperror.Validation(fmt.Sprintf("unknown plan %d", planID))
	}
	if plan.Price <= 0 {
		return "", apperror.Validation("the free plan cannot be purchased")
	}
	if s.cfg.SecretKey == "" {
		return "", apperror.MissingConfig("STRIPE_SECRET_KEY")
	}
	user, err := resolveUser(ctx, s.userRepo, clerkID)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(plan.Price) * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(plan.Name),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.AppURL + "/profile"),
		CancelURL:  stripe.String(s.cfg.AppURL + "/"),
		Metadata: map[string]string{
			"plan":    plan.Name,
			"credits": strconv.Itoa(plan.Credits),
			"buyerId": user.ID,
		},
	}
	sess, err := s.newSession(params)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan.Name).Msg("Failed to create Stripe checkout session")
		return "", apperror.Upstream("failed to create checkout session", err)
	}
	return sess.URL, nil
}

// ConstructEvent verifies the webhook signature.
func (s *StripeService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.cfg.WebhookSecret == "" {
		return stripe.Event{}, apperror.MissingConfig("STRIPE_WEBHOOK_SECRET")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		return stripe.Event{}, apperror.Validation("signature verification failed")
	}
	return event, nil
}

// HandleEvent processes a verified webhook event. A completed checkout
// records the transaction and grants its credits exactly once.
func (s *StripeService) HandleEvent(ctx context.Context, event stripe.Event) error {
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			return apperror.Validation("invalid checkout.session data")
		}
		credits, err := strconv.Atoi(cs.Metadata["credits"])
		if err != nil || credits <= 0 {
			s.logger.Error().Str("session_id", cs.ID).Msg("Missing credits in checkout session metadata")
			return apperror.Validation("missing credits in metadata")
		}
		buyerID := cs.Metadata["buyerId"]
		if buyerID == "" {
			s.logger.Error().Str("session_id", cs.ID).Msg("Missing buyerId in checkout session metadata")
			return apperror.Validation("missing buyerId in metadata")
		}

		tx := &model.Transaction{
			StripeID: cs.ID,
			Amount:   float64(cs.AmountTotal) / 100,
			Plan:     cs.Metadata["plan"],
			Credits:  credits,
			BuyerID:  buyerID,
		}
		balance, err := s.txRepo.RecordPurchase(ctx, tx)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.logger.Info().Str("session_id", cs.ID).Msg("Checkout session already recorded")
			return nil
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Error().Str("buyer_id", buyerID).Msg("Buyer of checkout session not found")
			return apperror.NotFound("buyer not found")
		case err != nil:
			s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to record purchase")
			return apperror.Wrap(err, "failed to record purchase")
		}
		s.metrics.CreditsPurchased(credits)
		s.events.Emit(ctx, pubsub.Event{Type: pubsub.EventCreditsPurchased, UserID: buyerID, Credits: credits, StripeID: cs.ID})
		s.logger.Info().Str("buyer_id", buyerID).Int("credits", credits).Int("balance", balance).Msg("Credits purchased")
	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Ignoring Stripe event")
	}
	return nil
}
