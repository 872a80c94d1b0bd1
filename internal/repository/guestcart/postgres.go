package guestcart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("guestcart.postgres")}
}

func (r *postgresRepo) Load(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT payload FROM guest_carts WHERE storage_key = $1`
	var payload []byte
	if err := r.pool.QueryRow(ctx, q, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (r *postgresRepo) Save(ctx context.Context, key string, payload []byte) error {
	const q = `
INSERT INTO guest_carts (storage_key, payload, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (storage_key) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = now()
`
	_, err := r.pool.Exec(ctx, q, key, string(payload))
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM guest_carts WHERE storage_key = $1`
	tag, err := r.pool.Exec(ctx, q, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM guest_carts WHERE updated_at < $1`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.Info("purged stale guest carts", zap.Int64("count", n))
	}
	return tag.RowsAffected(), nil
}
