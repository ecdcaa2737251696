package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// PostgresCaseRepo хранит снимок дела целиком в jsonb рядом с номером версии.
type PostgresCaseRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresCaseRepo(pool *pgxpool.Pool) *PostgresCaseRepo {
	return &PostgresCaseRepo{Pool: pool}
}

func (r *PostgresCaseRepo) Get(ctx context.Context, caseID string) (domain.CaseSnapshot, int64, error) {
	var (
		version int64
		raw     []byte
	)
	err := r.Pool.QueryRow(ctx, `SELECT version, payload FROM cases WHERE case_id = $1`, caseID).Scan(&version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	if err != nil {
		return domain.CaseSnapshot{}, 0, err
	}
	var c domain.CaseSnapshot
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("decode case %s: %w", caseID, err)
	}
	c.CaseID = caseID
	return c, version, nil
}

// CompareAndSwap обновляет строку только при совпадении версии. При конфликте
// отдельным запросом читается текущая версия.
func (r *PostgresCaseRepo) CompareAndSwap(ctx context.Context, caseID string, expected int64, next domain.CaseSnapshot) (bool, int64, error) {
	next.CaseID = caseID
	raw, err := json.Marshal(next)
	if err != nil {
		return false, 0, fmt.Errorf("encode case %s: %w", caseID, err)
	}
	var version int64
	err = r.Pool.QueryRow(ctx, `UPDATE cases SET payload = $3, version = version + 1
        WHERE case_id = $1 AND version = $2 RETURNING version`, caseID, expected, raw).Scan(&version)
	if err == nil {
		return true, version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, err
	}
	err = r.Pool.QueryRow(ctx, `SELECT version FROM cases WHERE case_id = $1`, caseID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	if err != nil {
		return false, 0, err
	}
	return false, version, nil
}

func (r *PostgresCaseRepo) Insert(ctx context.Context, c domain.CaseSnapshot) (int64, error) {
	if c.CaseID == "" {
		return 0, fmt.Errorf("%w: case without id", domain.ErrValidation)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	_, err = r.Pool.Exec(ctx, `INSERT INTO cases(case_id, version, payload) VALUES($1, 1, $2)`, c.CaseID, raw)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, fmt.Errorf("%w: %s", domain.ErrCaseExists, c.CaseID)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

var (
	_ domain.CaseStore  = (*PostgresCaseRepo)(nil)
	_ domain.CaseSeeder = (*PostgresCaseRepo)(nil)
)

// EnsureSchema — создать необходимые таблицы, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cases (
  case_id text PRIMARY KEY,
  version bigint NOT NULL,
  payload jsonb NOT NULL
);`)
	return err
}
