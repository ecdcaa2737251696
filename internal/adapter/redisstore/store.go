// Package redisstore хранит дела в Redis: хэш case:<id> с полями version и payload.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/example/sscs-hearings-service/internal/domain"
)

const keyPrefix = "case:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

type Store struct {
	client *redis.Client
	logger zerolog.Logger
}

// New подключается к Redis и проверяет соединение.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis case store")
	return NewWithClient(client, logger), nil
}

func NewWithClient(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) Close() error { return s.client.Close() }

func key(caseID string) string { return keyPrefix + caseID }

type record struct {
	version int64
	payload []byte
}

func read(ctx context.Context, c redis.Cmdable, caseID string) (record, error) {
	vals, err := c.HMGet(ctx, key(caseID), "version", "payload").Result()
	if err != nil {
		return record{}, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return record{}, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	vs, _ := vals[0].(string)
	version, err := strconv.ParseInt(vs, 10, 64)
	if err != nil {
		return record{}, fmt.Errorf("case %s: bad version %q: %w", caseID, vs, err)
	}
	ps, _ := vals[1].(string)
	return record{version: version, payload: []byte(ps)}, nil
}

func (s *Store) Get(ctx context.Context, caseID string) (domain.CaseSnapshot, int64, error) {
	rec, err := read(ctx, s.client, caseID)
	if err != nil {
		return domain.CaseSnapshot{}, 0, err
	}
	var c domain.CaseSnapshot
	if err := json.Unmarshal(rec.payload, &c); err != nil {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("decode case %s: %w", caseID, err)
	}
	c.CaseID = caseID
	return c, rec.version, nil
}

// CompareAndSwap выполняет WATCH/MULTI: транзакция отменяется, если ключ изменился
// после чтения версии.
func (s *Store) CompareAndSwap(ctx context.Context, caseID string, expected int64, next domain.CaseSnapshot) (bool, int64, error) {
	next.CaseID = caseID
	raw, err := json.Marshal(next)
	if err != nil {
		return false, 0, fmt.Errorf("encode case %s: %w", caseID, err)
	}

	var (
		swapped bool
		version int64
	)
	k := key(caseID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := read(ctx, tx, caseID)
		if err != nil {
			return err
		}
		version = rec.version
		if rec.version != expected {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "version", expected+1, "payload", raw)
			return nil
		})
		if err != nil {
			return err
		}
		swapped, version = true, expected+1
		return nil
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		rec, rerr := read(ctx, s.client, caseID)
		if rerr != nil {
			return false, 0, rerr
		}
		s.logger.Debug().Str("case_id", caseID).Int64("expected", expected).Msg("redis watch aborted swap")
		return false, rec.version, nil
	}
	if err != nil {
		return false, 0, err
	}
	return swapped, version, nil
}

func (s *Store) Insert(ctx context.Context, c domain.CaseSnapshot) (int64, error) {
	if c.CaseID == "" {
		return 0, fmt.Errorf("%w: case without id", domain.ErrValidation)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	k := key(c.CaseID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, k).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", domain.ErrCaseExists, c.CaseID)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "version", 1, "payload", raw)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, fmt.Errorf("%w: %s", domain.ErrCaseExists, c.CaseID)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

var (
	_ domain.CaseStore  = (*Store)(nil)
	_ domain.CaseSeeder = (*Store)(nil)
)
