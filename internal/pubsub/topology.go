package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Topology is the events topic, its dead letter topic and the pull
// subscription downstream consumers read from.
type Topology struct {
	Topic               string
	Subscription        string
	DeadLetterTopic     string
	Retention           time.Duration
	AckDeadline         time.Duration
	MaxDeliveryAttempts int
}

// DefaultTopology derives resource names from the events topic.
func DefaultTopology(topic string) Topology {
	return Topology{
		Topic:               topic,
		Subscription:        topic + "-sub",
		DeadLetterTopic:     topic + "-dlq",
		Retention:           7 * 24 * time.Hour,
		AckDeadline:         60 * time.Second,
		MaxDeliveryAttempts: 5,
	}
}

// EnsureTopology creates the resources that are missing. Existing topics are
// left alone; an existing subscription gets its ack deadline and retry
// policy updated.
func EnsureTopology(ctx context.Context, client *pubsub.Client, t Topology, logger zerolog.Logger) error {
	if t.Topic == "" {
		return errors.New("pubsub: topology has no topic")
	}
	dlq, err := ensureTopic(ctx, client, t.DeadLetterTopic, t.Retention, logger)
	if err != nil {
		return err
	}
	topic, err := ensureTopic(ctx, client, t.Topic, t.Retention, logger)
	if err != nil {
		return err
	}

	cfg := pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: t.AckDeadline,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: 10 * time.Second,
			MaximumBackoff: 600 * time.Second,
		},
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlq.String(),
			MaxDeliveryAttempts: t.MaxDeliveryAttempts,
		},
	}
	return ensureSubscription(ctx, client, t.Subscription, cfg, logger)
}

func ensureTopic(ctx context.Context, client *pubsub.Client, id string, retention time.Duration, logger zerolog.Logger) (*pubsub.Topic, error) {
	topic := client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", id, err)
	}
	if exists {
		logger.Info().Str("topic", id).Msg("Topic already exists")
		return topic, nil
	}
	logger.Info().Str("topic", id).Dur("retention", retention).Msg("Creating topic")
	created, err := client.CreateTopicWithConfig(ctx, id, &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		return nil, fmt.Errorf("create topic %s: %w", id, err)
	}
	return created, nil
}

func ensureSubscription(ctx context.Context, client *pubsub.Client, id string, cfg pubsub.SubscriptionConfig, logger zerolog.Logger) error {
	sub := client.Subscription(id)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", id, err)
	}
	if !exists {
		logger.Info().Str("subscription", id).Msg("Creating subscription")
		if _, err := client.CreateSubscription(ctx, id, cfg); err != nil {
			return fmt.Errorf("create subscription %s: %w", id, err)
		}
		return nil
	}

	existing, err := sub.Config(ctx)
	if err != nil {
		return fmt.Errorf("read subscription %s: %w", id, err)
	}
	if existing.AckDeadline == cfg.AckDeadline && sameRetry(existing.RetryPolicy, cfg.RetryPolicy) {
		logger.Info().Str("subscription", id).Msg("Subscription is up to date")
		return nil
	}
	logger.Info().Str("subscription", id).Msg("Updating subscription")
	if _, err := sub.Update(ctx, pubsub.SubscriptionConfigToUpdate{
		AckDeadline: cfg.AckDeadline,
		RetryPolicy: cfg.RetryPolicy,
	}); err != nil {
		return fmt.Errorf("update subscription %s: %w", id, err)
	}
	return nil
}

func sameRetry(a, b *pubsub.RetryPolicy) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MinimumBackoff == b.MinimumBackoff && a.MaximumBackoff == b.MaximumBackoff
}

// ResetEmulator deletes every subscription and topic of the client's
// project. Only run it against the local emulator.
func ResetEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) error {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		logger.Info().Str("subscription", sub.ID()).Msg("Deleting subscription")
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("subscription", sub.ID()).Msg("Failed to delete subscription")
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		logger.Info().Str("topic", topic.ID()).Msg("Deleting topic")
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("topic", topic.ID()).Msg("Failed to delete topic")
		}
	}
	return nil
}
