// Package redis implements core.SessionStore on Redis. Each transcript is a
// list of JSON encoded messages; a sorted set indexes the known sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/session"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the index score of sessions without expiry (2100-01-01).
const farFuture = 4102444800

// Store implements core.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ core.SessionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL expires idle transcripts after ttl. Every append refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "researchmesh:session:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Load returns the transcript; unknown sessions yield an empty transcript.
func (s *Store) Load(ctx context.Context, sessionID string) ([]core.Message, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	msgs := make([]core.Message, 0, len(vals))

	for _, v := range vals {
		var m core.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		msgs = append(msgs, m)
	}

	return msgs, nil
}

// Append pushes messages and refreshes the index entry and expiry.
func (s *Store) Append(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	values := make([]any, 0, len(msgs))

	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		values = append(values, data)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.TxPipeline()

	if len(values) > 0 {
		pipe.RPush(ctx, s.key(sessionID), values...)

		if s.ttl > 0 {
			pipe.Expire(ctx, s.key(sessionID), s.ttl)
		}
	}

	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}

	return nil
}

// Delete removes the transcript and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	removed, err := s.client.ZRem(ctx, s.indexKey(), sessionID).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if removed == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, sessionID)
	}

	return nil
}

// List prunes expired index entries and returns the remaining session ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return ids, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
