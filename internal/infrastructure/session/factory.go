package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tradein/backend/internal/domain/wizard"
	"github.com/tradein/backend/internal/infrastructure/config"
)

// Store is a session repository that holds resources to release on shutdown
type Store interface {
	wizard.SessionRepository
	Close() error
}

// StoreFactory creates session stores based on configuration
type StoreFactory struct {
	sessionConfig         config.SessionConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *StoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory. Fallback follows cfg.AllowFallback unless overridden.
func NewStoreFactory(cfg config.SessionConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *StoreFactory {
	f := &StoreFactory{
		sessionConfig:         cfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cfg.AllowFallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based session store
func (f *StoreFactory) CreateRedisStore() (Store, error) {
	store, err := NewRedisStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates an in-memory session store.
// WARNING: In-memory sessions are not shared across process instances,
// so a load balancer must pin a user to one instance.
func (f *StoreFactory) CreateInMemoryStore() Store {
	return NewMemoryStore()
}

// CreateStore creates the configured session store.
// A redis store that cannot connect falls back to memory when fallback is allowed.
func (f *StoreFactory) CreateStore() (Store, error) {
	if f.sessionConfig.Store != config.SessionStoreRedis {
		f.logger.Info("using in-memory wizard session store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis wizard session store",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for wizard sessions but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory wizard session store",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
