package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MustOpen connects to Postgres, retrying with exponential backoff so
// the service survives the database coming up after it.
func MustOpen(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect fail")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err = backoff.RetryNotify(
		func() error { return pool.Ping(ctx) },
		policy,
		func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("db ping fail, retrying")
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("db ping fail")
	}

	return pool
}
