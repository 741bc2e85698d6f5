// Package di wires the application graph: storage backend, session store and
// services, provider registry and the websocket hub.
package di

import (
	"context"
	"fmt"
	"time"

	"chat-aggregator/backend/ai"
	chatservice "chat-aggregator/backend/chat/service"
	"chat-aggregator/backend/internal/ws"
	"chat-aggregator/backend/pkg/cache"
	"chat-aggregator/backend/pkg/config"
	"chat-aggregator/backend/pkg/health"
	"chat-aggregator/backend/pkg/kv"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/pkg/resilience"
	"chat-aggregator/backend/pkg/secrets"
	sessionservice "chat-aggregator/backend/session/service"
	"chat-aggregator/backend/session/store"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	Logger         *logger.Logger
	Medium         kv.Store
	Registry       *ai.Registry
	Hub            *ws.Hub
	Health         *health.Checker
	SessionStore   *store.SessionStore
	SessionService *sessionservice.SessionService
	TurnService    *chatservice.TurnService
}

// New builds the dependency graph from configuration. The storage backend is
// selected by STORAGE_BACKEND; memory is the fallback so the service runs
// with no external infrastructure.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	medium, err := newMedium(cfg, log)
	if err != nil {
		return nil, err
	}

	var sessionCache *cache.Cache
	if cfg.Cache.Enabled {
		sessionCache = cache.NewCache()
	}

	registry, err := newRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStorageCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return medium.Ping(ctx)
	})
	// first pass runs synchronously so /health is meaningful immediately
	checker.RunChecks()
	checker.Start()

	sessions := store.NewSessionStore(medium, cfg.Storage.RecordKey, sessionCache, log)
	sessionService := sessionservice.NewSessionService(sessions, cfg, log)
	turnService := chatservice.NewTurnService(sessions, registry, hub, log)

	return &Container{
		Config:         cfg,
		Logger:         log,
		Medium:         medium,
		Registry:       registry,
		Hub:            hub,
		Health:         checker,
		SessionStore:   sessions,
		SessionService: sessionService,
		TurnService:    turnService,
	}, nil
}

func newMedium(cfg *config.Config, log *logger.Logger) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		log.Info("using redis storage backend", "addr", cfg.Storage.RedisAddr)
		return kv.NewRedisStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB), nil
	case "postgres":
		log.Info("using postgres storage backend", "host", cfg.Database.Host)
		db, err := config.NewDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return kv.NewGormStore(db)
	case "memory", "":
		log.Info("using in-memory storage backend")
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// newRegistry constructs one adapter per configured vendor. API keys resolve
// through the secrets manager (vault when configured, environment otherwise);
// a vendor without a key is still registered and fails at call time, which
// the turn pipeline turns into an unavailability notice.
func newRegistry(cfg *config.Config, log *logger.Logger) (*ai.Registry, error) {
	ctx := context.Background()

	openaiKey := secrets.GetSecretWithDefault(ctx, "OPENAI_API_KEY", "")
	anthropicKey := secrets.GetSecretWithDefault(ctx, "ANTHROPIC_API_KEY", "")
	geminiKey := secrets.GetSecretWithDefault(ctx, "GEMINI_API_KEY", "")

	if openaiKey == "" && anthropicKey == "" && geminiKey == "" {
		log.Warn("no provider API keys configured, all completions will fail")
	}

	timeout := cfg.Providers.Timeout
	wrap := func(p ai.Provider) ai.Provider {
		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(p.ID()), log)
		return ai.Instrumented(ai.Guarded(p, breaker))
	}
	return ai.NewRegistry(
		wrap(ai.NewOpenAIProvider(openaiKey, cfg.Providers.OpenAIBase, cfg.Providers.OpenAIModel, timeout)),
		wrap(ai.NewAnthropicProvider(anthropicKey, cfg.Providers.AnthropicBase, cfg.Providers.AnthropicModel, timeout)),
		wrap(ai.NewGeminiProvider(geminiKey, cfg.Providers.GeminiBase, cfg.Providers.GeminiModel, timeout)),
	), nil
}
