package service

import (
	"context"
	"fmt"

	"imaginify/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretManagerService reads deployment secrets from Google Secret Manager.
type SecretManagerService struct {
	client    *secretmanager.Client
	projectID string
	logger    zerolog.Logger
}

func NewSecretManagerService(ctx context.Context, projectID string, logger zerolog.Logger, opts ...option.ClientOption) (*SecretManagerService, error) {
	if projectID == "" {
		return nil, fmt.Errorf("secret manager project id is not set")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &SecretManagerService{
		client:    client,
		projectID: projectID,
		logger:    logger.With().Str("service", "SecretManagerService").Logger(),
	}, nil
}

// Access returns the latest version of a secret. ok is false when the
// secret does not exist.
func (s *SecretManagerService) Access(ctx context.Context, name string) (value string, ok bool, err error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resourceName})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return string(result.Payload.Data), true, nil
}

// ResolveConfig fills secret settings that the environment left empty.
func (s *SecretManagerService) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	return resolveSecrets(ctx, cfg, s.Access, s.logger)
}

func (s *SecretManagerService) Close() error {
	return s.client.Close()
}

type secretFetcher func(ctx context.Context, name string) (string, bool, error)

func resolveSecrets(ctx context.Context, cfg *config.Config, fetch secretFetcher, logger zerolog.Logger) error {
	targets := []struct {
		name  string
		field *string
	}{
		{"AUTH_KEY", &cfg.AuthKey},
		{"CLOUDINARY_API_SECRET", &cfg.CloudinaryAPISecret},
		{"STRIPE_SECRET_KEY", &cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret},
		{"MONGODB_URI", &cfg.MongoURI},
		{"DB_CONNECTION_STRING", &cfg.DBConnectionString},
	}
	for _, t := range targets {
		if *t.field != "" {
			continue
		}
		value, ok, err := fetch(ctx, t.name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		*t.field = value
		logger.Debug().Str("secret", t.name).Msg("Secret resolved")
	}
	return nil
}
