package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lionzhd/lionz/internal/sqldb"
)

// SQLStore keeps cache entries in a cache_entries table so they survive
// restarts. expires_at is a unix timestamp; zero never expires.
type SQLStore struct {
	db  *sqldb.DB
	now clock
}

func NewSQLStore(ctx context.Context, db *sqldb.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	valueType := "BLOB"
	if s.db.Dialect == sqldb.Postgres {
		valueType = "BYTEA"
	}
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key TEXT PRIMARY KEY,
    value `+valueType+` NOT NULL,
    expires_at BIGINT NOT NULL DEFAULT 0
)`)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value   []byte
		expires int64
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT value, expires_at FROM cache_entries WHERE cache_key=?`), key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expires != 0 && s.now().Unix() >= expires {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if e := expiry(s.now(), ttl); !e.IsZero() {
		expires = e.Unix()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO cache_entries (cache_key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`), key, value, expires)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM cache_entries WHERE cache_key=?`), key)
	return err
}

// Purge drops every expired entry.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?`), s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
