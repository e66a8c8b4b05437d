package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

// QuotaStore - постгресовая реализация quota.Store.
// Одна строка на сервис, история запросов лежит в timestamptz[].
type QuotaStore struct {
	db *DB
}

func NewQuotaStore(db *DB) *QuotaStore {
	return &QuotaStore{db: db}
}

func (r *QuotaStore) Load(ctx context.Context, service string) (*domain.QuotaState, error) {
	query := `
        SELECT service, period, monthly_used, last_request, history
        FROM quota_state
        WHERE service = $1
    `

	var s domain.QuotaState
	err := r.db.Pool.QueryRow(ctx, query, service).Scan(
		&s.Service,
		&s.Period,
		&s.MonthlyUsed,
		&s.LastRequest,
		&s.History,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load quota state: %w", err)
	}

	return &s, nil
}

func (r *QuotaStore) Save(ctx context.Context, state *domain.QuotaState) error {
	query := `
        INSERT INTO quota_state (service, period, monthly_used, last_request, history)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (service) DO UPDATE SET
            period = EXCLUDED.period,
            monthly_used = EXCLUDED.monthly_used,
            last_request = EXCLUDED.last_request,
            history = EXCLUDED.history
    `

	_, err := r.db.Pool.Exec(ctx, query,
		state.Service,
		state.Period,
		state.MonthlyUsed,
		state.LastRequest,
		state.History,
	)
	if err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}

	return nil
}

// Schema - DDL для таблицы квот; дергается миграциями и интеграционными тестами
const Schema = `
    CREATE TABLE IF NOT EXISTS quota_state (
        service TEXT PRIMARY KEY,
        period TEXT NOT NULL,
        monthly_used INT NOT NULL DEFAULT 0,
        last_request TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
        history TIMESTAMPTZ[] NOT NULL DEFAULT '{}'
    );
`
