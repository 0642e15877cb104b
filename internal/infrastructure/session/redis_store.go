package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tradein/backend/internal/domain/wizard"
)

// DefaultKeyPrefix namespaces wizard sessions in Redis
const DefaultKeyPrefix = "tradein:wizard:session:"

// minTTL keeps a session that is about to expire from being written without expiry
const minTTL = time.Second

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStore implements wizard.SessionRepository using Redis.
// Sessions expire through the key TTL, and Save uses WATCH/MULTI so that
// concurrent writers to the same session conflict instead of overwriting.
// This is suitable for deployments where multiple instances share sessions.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based session store
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
	}, nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Create stores a new session. SETNX keeps an existing session from being replaced.
func (s *RedisStore) Create(ctx context.Context, sess *wizard.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(sess.ID), data, ttlUntil(sess.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("failed to create session in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

// Get returns the session, or wizard.ErrSessionNotFound when the key is gone
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*wizard.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, wizard.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}
	return decodeSession(id, data)
}

// Save stores sess when the stored version matches sess.Version, then increments it
func (s *RedisStore) Save(ctx context.Context, sess *wizard.Session) error {
	key := s.key(sess.ID)
	next := *sess
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return wizard.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeSession(sess.ID, stored)
		if err != nil {
			return err
		}
		if current.Version != sess.Version {
			return wizard.ErrSessionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttlUntil(next.ExpiresAt))
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		sess.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return wizard.ErrSessionConflict
	case errors.Is(err, wizard.ErrSessionNotFound), errors.Is(err, wizard.ErrSessionConflict):
		return err
	default:
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
}

// Delete removes a session
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client
func (s *RedisStore) GetClient() *redis.Client {
	return s.client
}

func (s *RedisStore) key(id uuid.UUID) string {
	return s.keyPrefix + id.String()
}

func decodeSession(id uuid.UUID, data []byte) (*wizard.Session, error) {
	var sess wizard.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &sess, nil
}

// ttlUntil converts an absolute expiry into a key TTL
func ttlUntil(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
