package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/pkg/model"
)

// RecentEventsKey is the Redis list holding the newest access events first.
const RecentEventsKey = "cardlock:events:recent"

// Store keeps the audit trail of access decisions.
type Store interface {
	RecordEvent(ctx context.Context, ev model.AccessEvent) error
	RecentEvents(ctx context.Context, limit int) ([]model.AccessEvent, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// DBExecutor is the subset of pgxpool.Pool used to append audit rows.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// HybridStore keeps a bounded list of recent events in Redis and, when a
// database is configured, an append-only audit log in Postgres.
type HybridStore struct {
	redis     *redis.Client
	PG        *pgxpool.Pool
	audit     DBExecutor
	logger    *zap.Logger
	keepLimit int64
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Options configures NewHybrid.
type Options struct {
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	RecentLimit  int
	PGURL        string
	PGPoolConfig PGPoolConfig
}

// NewHybrid creates a Redis-first store with an optional Postgres audit log.
func NewHybrid(opts Options, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		DB:       opts.RedisDB,
		Password: opts.RedisPass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if opts.PGURL != "" {
		cfg, err := pgxpool.ParseConfig(opts.PGURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		pc := opts.PGPoolConfig
		if pc.MaxConns > 0 {
			cfg.MaxConns = pc.MaxConns
		}
		if pc.MinConns > 0 {
			cfg.MinConns = pc.MinConns
		}
		if pc.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pc.MaxConnLifetime
		}
		if pc.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pc.MaxConnIdleTime
		}
		if pc.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pc.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return newHybrid(rdb, pgPool, opts.RecentLimit, logger), nil
}

func newHybrid(rdb *redis.Client, pg *pgxpool.Pool, limit int, logger *zap.Logger) *HybridStore {
	if limit <= 0 {
		limit = 100
	}
	st := &HybridStore{redis: rdb, PG: pg, logger: logger, keepLimit: int64(limit)}
	if pg != nil {
		st.audit = pg
	}
	return st
}

// RecordEvent appends ev to the audit log, then pushes it onto the recent
// list. An event that fails the audit insert is not pushed, so the recent
// list never shows a decision the audit log lacks. A Redis failure after a
// successful insert leaves the event in the audit log only.
func (s *HybridStore) RecordEvent(ctx context.Context, ev model.AccessEvent) error {
	if s.redis == nil {
		return errors.New("redis not initialized")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal access event: %w", err)
	}

	if s.audit != nil {
		_, err = s.audit.Exec(ctx, `
			INSERT INTO audit.access_event (
				id, card_uid, granted, reason, lock_id, decided_at
			)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ev.ID, ev.UID, ev.Granted, ev.Reason, ev.LockID, ev.DecidedAt)
		if err != nil {
			s.logger.Error("store.pg.insert_event_failed", zap.Error(err))
			return fmt.Errorf("pg insert event: %w", err)
		}
	}

	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, RecentEventsKey, data)
	pipe.LTrim(ctx, RecentEventsKey, 0, s.keepLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("store.redis.push_event_failed", zap.Error(err))
		return fmt.Errorf("redis push event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *HybridStore) RecentEvents(ctx context.Context, limit int) ([]model.AccessEvent, error) {
	if s.redis == nil {
		return nil, errors.New("redis not initialized")
	}
	if limit <= 0 || int64(limit) > s.keepLimit {
		limit = int(s.keepLimit)
	}
	raw, err := s.redis.LRange(ctx, RecentEventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read events: %w", err)
	}

	events := make([]model.AccessEvent, 0, len(raw))
	for _, item := range raw {
		var ev model.AccessEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			s.logger.Warn("store.redis.bad_event", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return errors.New("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
