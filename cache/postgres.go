package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/onnwee/matchsync/db"
)

// Postgres stores entries in the migrated cache_entries table.
type Postgres struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPostgres wraps an open, migrated database.
func NewPostgres(dbx *sql.DB) *Postgres { return &Postgres{DB: dbx, now: time.Now} }

func (p *Postgres) Backend() string { return BackendPostgres }

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return db.GetEntry(ctx, p.DB, key, p.now())
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return db.PutEntry(ctx, p.DB, key, value, p.now().Add(ttl))
}

// Purge deletes expired rows.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	return db.PurgeExpired(ctx, p.DB, p.now())
}
