package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"imaginify/internal/apperror"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type stripeFixture struct {
	svc     *StripeService
	store   *repository.Store
	events  *captureEmitter
	metrics *countingMetrics
}

func newStripeFixture(t *testing.T) *stripeFixture {
	t.Helper()
	f := &stripeFixture{store: newTestStore(t), events: &captureEmitter{}, metrics: &countingMetrics{}}
	f.svc = NewStripeService(StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		AppURL:        "https://app.test",
	}, f.store.Users, f.store.Transactions, f.events, f.metrics, nopLogger)
	t.Cleanup(func() { stripe.Key = "" })
	return f
}

func completedEvent(t *testing.T, sessionID, buyerID string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":           sessionID,
		"object":       "checkout.session",
		"amount_total": 4000,
		"metadata": map[string]string{
			"plan":    "Pro Package",
			"credits": "120",
			"buyerId": buyerID,
		},
	})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}
}

func TestHandleCheckoutCompletedIsIdempotent(t *testing.T) {
	f := newStripeFixture(t)
	svc, store, events, metrics := f.svc, f.store, f.events, f.metrics
	user := mustCreateUser(t, store, "user_1", 10)
	ctx := context.Background()

	ev := completedEvent(t, "cs_test_1", user.ID)
	if err := svc.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if err := svc.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("replayed HandleEvent: %v", err)
	}

	if got := balanceOf(t, store, user.ID); got != 130 {
		t.Fatalf("balance = %d, want 130", got)
	}
	tx, err := store.Transactions.GetTransactionByStripeID(ctx, "cs_test_1")
	if err != nil || tx == nil {
		t.Fatalf("transaction not stored: %v", err)
	}
	if tx.Amount != 40 || tx.Plan != "Pro Package" || tx.Credits != 120 || tx.BuyerID != user.ID {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if metrics.purchased != 120 {
		t.Fatalf("purchased metric = %d", metrics.purchased)
	}
	if got := events.types(); len(got) != 1 || got[0] != pubsub.EventCreditsPurchased {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestHandleEventRejectsBadSessions(t *testing.T) {
	svc := newStripeFixture(t).svc
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, completedEvent(t, "cs_test_2", "")); apperror.StatusCode(err) != 400 {
		t.Fatalf("expected validation error for missing buyer, got %v", err)
	}
	if err := svc.HandleEvent(ctx, completedEvent(t, "cs_test_3", "ghost")); apperror.StatusCode(err) != 404 {
		t.Fatalf("expected not found for unknown buyer, got %v", err)
	}
	other := stripe.Event{Type: "invoice.paid", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}
	if err := svc.HandleEvent(ctx, other); err != nil {
		t.Fatalf("unrelated events should be ignored, got %v", err)
	}
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	svc := newStripeFixture(t).svc
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})
	ev, err := svc.ConstructEvent(payload, signed.Header)
	if err != nil {
		t.Fatalf("ConstructEvent: %v", err)
	}
	if ev.ID != "evt_1" {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := svc.ConstructEvent(payload, "t=1,v1=bad"); apperror.StatusCode(err) != 400 {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	f := newStripeFixture(t)
	svc, store := f.svc, f.store
	user := mustCreateUser(t, store, "user_1", 10)

	var captured *stripe.CheckoutSessionParams
	svc.newSession = func(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = p
		return &stripe.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.test/cs_new"}, nil
	}

	url, err := svc.CreateCheckoutSession(context.Background(), "user_1", 3)
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if url != "https://checkout.stripe.test/cs_new" {
		t.Fatalf("unexpected url %s", url)
	}
	item := captured.LineItems[0]
	if *item.PriceData.UnitAmount != 19900 || *item.PriceData.ProductData.Name != "Premium Package" {
		t.Fatalf("unexpected line item: %+v", item.PriceData)
	}
	if captured.Metadata["buyerId"] != user.ID || captured.Metadata["credits"] != "2000" {
		t.Fatalf("unexpected metadata: %v", captured.Metadata)
	}
	if *captured.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %s", *captured.Mode)
	}

	if _, err := svc.CreateCheckoutSession(context.Background(), "user_1", 1); apperror.StatusCode(err) != 400 {
		t.Fatalf("free plan should not be purchasable, got %v", err)
	}
	if _, err := svc.CreateCheckoutSession(context.Background(), "user_1", 9); apperror.StatusCode(err) != 400 {
		t.Fatalf("unknown plan should be rejected, got %v", err)
	}

	svc.newSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("stripe down")
	}
	if _, err := svc.CreateCheckoutSession(context.Background(), "user_1", 2); apperror.StatusCode(err) != 502 {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
