package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// retention is how long state history is kept.
const retention = 8 * 24 * time.Hour

type Database struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewDatabase(pool *pgxpool.Pool) *Database {
	return &Database{
		pool: pool,
		now:  time.Now,
	}
}

// Connect opens a pool and checks the server is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (db *Database) Close() error {
	if db.pool == nil {
		return nil
	}
	db.pool.Close()
	return nil
}
