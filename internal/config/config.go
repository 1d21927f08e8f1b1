package config

import (
	"strings"
	"time"

	"imaginify/internal/apperror"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	AppURL      string `envconfig:"APP_URL" default:"http://localhost:3000"`

	// Storage backend: mongo, postgres or memory
	StoreDriver        string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI           string `envconfig:"MONGODB_URI"`
	MongoDatabase      string `envconfig:"MONGODB_DATABASE" default:"imaginify"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`

	// Session tokens issued by the identity provider
	AuthKey     string `envconfig:"AUTH_KEY"`
	AuthIssuer  string `envconfig:"AUTH_ISSUER"`
	SignInURL   string `envconfig:"SIGN_IN_URL" default:"/sign-in"`
	CORSOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Image provider
	CloudinaryCloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `envconfig:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `envconfig:"CLOUDINARY_FOLDER" default:"imaginify"`

	// Upload staging bucket
	S3URL        string        `envconfig:"S3_URL"`
	S3Bucket     string        `envconfig:"S3_BUCKET"`
	S3Region     string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey  string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string        `envconfig:"S3_SECRET_KEY"`
	UploadURLTTL time.Duration `envconfig:"UPLOAD_URL_TTL" default:"15m"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	// Credits and drafts
	CreditFee            int           `envconfig:"CREDIT_FEE" default:"1"`
	DefaultCreditBalance int           `envconfig:"DEFAULT_CREDIT_BALANCE" default:"10"`
	DraftDebounce        time.Duration `envconfig:"DRAFT_DEBOUNCE" default:"1s"`
	DraftTTL             time.Duration `envconfig:"DRAFT_TTL" default:"1h"`

	// Rate limiting, disabled when REDIS_ADDR is empty
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Tracing
	TraceExporter string `envconfig:"TRACE_EXPORTER" default:"none"`
	OTLPEndpoint  string `envconfig:"OTLP_ENDPOINT"`
	OTLPInsecure  bool   `envconfig:"OTLP_INSECURE" default:"false"`

	// Google Cloud
	GCPProjectID           string `envconfig:"GCP_PROJECT_ID"`
	PubSubEventsTopic      string `envconfig:"PUBSUB_EVENTS_TOPIC"`
	SecretManagerProjectID string `envconfig:"SECRET_MANAGER_PROJECT_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type setting struct {
	name  string
	value string
}

// Validate reports the first required setting that is still empty. It runs
// after secrets have been resolved.
func (c *Config) Validate() error {
	required := []setting{
		{"AUTH_KEY", c.AuthKey},
		{"CLOUDINARY_CLOUD_NAME", c.CloudinaryCloudName},
		{"CLOUDINARY_API_KEY", c.CloudinaryAPIKey},
		{"CLOUDINARY_API_SECRET", c.CloudinaryAPISecret},
	}
	switch c.StoreDriver {
	case "mongo":
		required = append(required, setting{"MONGODB_URI", c.MongoURI})
	case "postgres":
		required = append(required, setting{"DB_CONNECTION_STRING", c.DBConnectionString})
	case "memory":
	default:
		return apperror.Validation("unsupported STORE_DRIVER " + c.StoreDriver)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.MissingConfig(r.name)
		}
	}
	if c.CreditFee <= 0 {
		return apperror.Validation("CREDIT_FEE must be positive")
	}
	return nil
}
