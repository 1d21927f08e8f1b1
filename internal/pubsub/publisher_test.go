package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	ps "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

func TestNewPublisherInvalidProject(t *testing.T) {
	if _, err := NewPublisher(context.Background(), ""); err == nil {
		t.Fatal("expected error when project ID is empty")
	}
}

type capturePublisher struct {
	topic    string
	payloads [][]byte
	err      error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.topic = topic
	c.payloads = append(c.payloads, payload)
	return "msg-1", nil
}

func TestEmitterPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	e := NewEmitter(pub, "imaginify-events", zerolog.Nop())
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	e.Emit(context.Background(), Event{Type: EventImageSaved, ImageID: "img-1", UserID: "u-1"})

	if pub.topic != "imaginify-events" || len(pub.payloads) != 1 {
		t.Fatalf("unexpected publish: topic=%q count=%d", pub.topic, len(pub.payloads))
	}
	var got Event
	if err := json.Unmarshal(pub.payloads[0], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != EventImageSaved || got.ImageID != "img-1" || got.At.Year() != 2024 {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestEmitterDropsWithoutTopicAndSwallowsErrors(t *testing.T) {
	pub := &capturePublisher{}
	NewEmitter(pub, "", zerolog.Nop()).Emit(context.Background(), Event{Type: EventImageDeleted})
	if len(pub.payloads) != 0 {
		t.Fatal("expected no publish without a topic")
	}

	var nilEmitter *Emitter
	nilEmitter.Emit(context.Background(), Event{Type: EventImageDeleted})

	failing := &capturePublisher{err: errors.New("unavailable")}
	NewEmitter(failing, "topic", zerolog.Nop()).Emit(context.Background(), Event{Type: EventCreditsPurchased})
}

func TestPublishWithEmulator(t *testing.T) {
	emulator := os.Getenv("PUBSUB_EMULATOR_HOST")
	if emulator == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	pub, err := NewPublisher(ctx, "test-project")
	if err != nil {
		t.Fatalf("failed to create PubSubPublisher: %v", err)
	}
	defer pub.Close()

	topicName := "imaginify-events-test"
	topic, err := pub.client.CreateTopic(ctx, topicName)
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	sub, err := pub.client.CreateSubscription(ctx, "imaginify-events-sub", ps.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	NewEmitter(pub, topicName, zerolog.Nop()).Emit(ctx, Event{Type: EventImageSaved, ImageID: "img-1", UserID: "u-1"})

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c := make(chan []byte, 1)
	go func() {
		_ = sub.Receive(recvCtx, func(ctx context.Context, m *ps.Message) {
			c <- m.Data
			m.Ack()
			cancel()
		})
	}()

	select {
	case data := <-c:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.ImageID != "img-1" {
			t.Fatalf("unexpected message %s (%v)", data, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message from emulator subscription")
	}
}
