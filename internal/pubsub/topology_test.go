package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	ps "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

func TestDefaultTopology(t *testing.T) {
	got := DefaultTopology("imaginify-events")
	if got.Subscription != "imaginify-events-sub" || got.DeadLetterTopic != "imaginify-events-dlq" {
		t.Fatalf("unexpected names: %+v", got)
	}
	if got.MaxDeliveryAttempts != 5 || got.Retention != 7*24*time.Hour {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestEnsureTopologyRequiresTopic(t *testing.T) {
	if err := EnsureTopology(context.Background(), nil, Topology{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestSameRetry(t *testing.T) {
	a := &ps.RetryPolicy{MinimumBackoff: time.Second, MaximumBackoff: time.Minute}
	b := &ps.RetryPolicy{MinimumBackoff: time.Second, MaximumBackoff: time.Minute}
	if !sameRetry(a, b) || !sameRetry(nil, nil) {
		t.Fatal("equal policies reported different")
	}
	if sameRetry(a, nil) || sameRetry(a, &ps.RetryPolicy{MinimumBackoff: time.Second}) {
		t.Fatal("different policies reported equal")
	}
}

func TestEnsureTopologyWithEmulator(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}
	ctx := context.Background()
	client, err := ps.NewClient(ctx, "topology-test")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	topo := DefaultTopology("events-" + time.Now().Format("150405.000000"))
	for i := 0; i < 2; i++ {
		if err := EnsureTopology(ctx, client, topo, zerolog.Nop()); err != nil {
			t.Fatalf("ensure run %d: %v", i, err)
		}
	}
	ok, err := client.Subscription(topo.Subscription).Exists(ctx)
	if err != nil || !ok {
		t.Fatalf("subscription missing: %v", err)
	}
}
