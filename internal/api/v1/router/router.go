package router

import (
	"net/http"

	"imaginify/internal/api/v1/handler"
	"imaginify/internal/config"
	"imaginify/internal/form"
	"imaginify/internal/metrics"
	"imaginify/internal/middleware"
	"imaginify/internal/ratelimit"
	"imaginify/internal/repository"
	"imaginify/internal/service"
	"imaginify/internal/telemetry"
	"imaginify/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the backends the API is built on. Stager, Events, Tracer and
// Redis are optional: without a stager the upload routes are not mounted,
// without Redis requests are not rate limited.
type Deps struct {
	Store    *repository.Store
	Provider service.ImageProvider
	Stager   service.UploadStager
	Events   service.EventEmitter
	Drafts   *form.Registry
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer
	Redis    redis.UniversalClient
}

// instrumentedMux wraps every registered route with request metrics and a
// server span labelled by its pattern.
type instrumentedMux struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func (m *instrumentedMux) Handle(pattern string, h http.Handler) {
	m.mux.Handle(pattern, m.metrics.Instrument(pattern, telemetry.Middleware(m.tracer, pattern, h)))
}

func New(cfg *config.Config, logger zerolog.Logger, deps Deps) (http.Handler, error) {
	logger.Info().Str("environment", cfg.Environment).Str("store", cfg.StoreDriver).Msg("Router initialized")

	// 1. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 2. Initialize services
	store := deps.Store
	userSvc := service.NewUserService(store.Users, store.Images, cfg.DefaultCreditBalance, logger)
	imageSvc := service.NewImageService(store.Images, store.Users, deps.Provider, deps.Events, logger)
	transformationSvc := service.NewTransformationService(
		deps.Drafts, imageSvc, store.Images, store.Users, deps.Provider,
		deps.Events, deps.Metrics, validate, cfg.CreditFee, logger,
	)
	creditSvc := service.NewCreditService(store.Users, store.Transactions)
	stripeSvc := service.NewStripeService(service.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		AppURL:        cfg.AppURL,
	}, store.Users, store.Transactions, deps.Events, deps.Metrics, logger)

	// 3. Initialize middleware
	verifier, err := util.NewTokenVerifier(cfg.AuthKey, cfg.AuthIssuer)
	if err != nil {
		return nil, err
	}
	authMiddleware := handler.Middleware(middleware.AuthMiddleware(verifier, cfg.SignInURL))

	var limiter middleware.RateLimiter
	if deps.Redis != nil {
		fw, err := ratelimit.NewFixedWindow(deps.Redis, cfg.RateLimitRequests, cfg.RateLimitWindow, "imaginify:ratelimit")
		if err != nil {
			return nil, err
		}
		limiter = fw
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, rate limiting disabled")
	}
	limit := func(route string) handler.Middleware {
		return middleware.RateLimitMiddleware(limiter, route, deps.Metrics.RateLimitRejected)
	}

	// 4. Register routes
	mux := http.NewServeMux()
	api := &instrumentedMux{mux: mux, metrics: deps.Metrics, tracer: deps.Tracer}

	handler.NewHealthHandler().RegisterRoutes(api)
	handler.NewUserHandler(userSvc, imageSvc, validate).RegisterRoutes(api, authMiddleware)
	handler.NewImageHandler(imageSvc, validate).RegisterRoutes(api, authMiddleware)
	handler.NewTransformationHandler(transformationSvc, validate).RegisterRoutes(api, authMiddleware, limit)
	handler.NewCreditHandler(creditSvc, stripeSvc, validate).RegisterRoutes(api, authMiddleware, limit)
	handler.NewWebhookHandler(stripeSvc).RegisterRoutes(api)
	if deps.Stager != nil {
		uploadSvc := service.NewUploadService(deps.Stager, deps.Provider, logger)
		handler.NewUploadHandler(uploadSvc, validate).RegisterRoutes(api, authMiddleware, limit)
	} else {
		logger.Warn().Msg("S3_BUCKET not set, upload routes disabled")
	}
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	// 5. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), nil
}
