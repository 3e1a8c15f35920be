package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/sqldb"
)

// SQLDownloadRefRepo implements DownloadRefRepo on Postgres or SQLite.
// It expects a table `media_download_refs` with a unique index on `gid`;
// timestamps are stored as unix microseconds so both dialects agree.
type SQLDownloadRefRepo struct {
	db  *sqldb.DB
	now func() time.Time
}

var _ DownloadRefRepo = (*SQLDownloadRefRepo)(nil)

// NewSQLDownloadRefRepo wraps db and creates the schema if needed.
func NewSQLDownloadRefRepo(ctx context.Context, db *sqldb.DB) (*SQLDownloadRefRepo, error) {
	r := &SQLDownloadRefRepo{db: db, now: time.Now}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLDownloadRefRepo) ensureSchema(ctx context.Context) error {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.db.Dialect == sqldb.Postgres {
		idCol = "BIGSERIAL PRIMARY KEY"
	}
	if _, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS media_download_refs (
    id `+idCol+`,
    gid TEXT NOT NULL UNIQUE,
    media_type TEXT NOT NULL,
    media_id BIGINT NOT NULL,
    downloadable_id BIGINT NOT NULL,
    episode INTEGER,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS media_download_refs_media_idx ON media_download_refs (media_type, media_id, downloadable_id)`)
	return err
}

const refColumns = `id,gid,media_type,media_id,downloadable_id,episode,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRef(s rowScanner) (*data.DownloadRef, error) {
	var (
		ref              data.DownloadRef
		kind             string
		episode          sql.NullInt64
		created, updated int64
	)
	if err := s.Scan(&ref.ID, &ref.GID, &kind, &ref.MediaID, &ref.DownloadableID, &episode, &created, &updated); err != nil {
		return nil, err
	}
	ref.MediaKind = data.MediaKind(kind)
	if episode.Valid {
		ref.Episode = data.IntPtr(int(episode.Int64))
	}
	ref.CreatedAt = time.UnixMicro(created).UTC()
	ref.UpdatedAt = time.UnixMicro(updated).UTC()
	return &ref, nil
}

func (r *SQLDownloadRefRepo) query(ctx context.Context, q string, args ...any) (data.DownloadRefs, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(data.DownloadRefs, 0)
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *SQLDownloadRefRepo) Create(ctx context.Context, ref *data.DownloadRef) (*data.DownloadRef, error) {
	now := r.now().UTC()
	var episode any
	if ref.Episode != nil {
		episode = *ref.Episode
	}
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
INSERT INTO media_download_refs (gid,media_type,media_id,downloadable_id,episode,created_at,updated_at)
VALUES (?,?,?,?,?,?,?)
RETURNING `+refColumns),
		ref.GID, string(ref.MediaKind), ref.MediaID, ref.DownloadableID, episode, now.UnixMicro(), now.UnixMicro())
	out, err := scanRef(row)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return nil, data.ErrConflict
		}
		return nil, fmt.Errorf("create download ref %s: %w", ref.GID, err)
	}
	return out, nil
}

func (r *SQLDownloadRefRepo) Find(ctx context.Context, f data.RefFilter) (data.DownloadRefs, error) {
	q := `SELECT ` + refColumns + ` FROM media_download_refs WHERE media_type=? AND media_id=? AND downloadable_id=?`
	args := []any{string(f.MediaKind), f.MediaID, f.DownloadableID}
	if f.Episode != nil {
		q += ` AND episode=?`
		args = append(args, *f.Episode)
	}
	return r.query(ctx, q+` ORDER BY id DESC`, args...)
}

func (r *SQLDownloadRefRepo) List(ctx context.Context, limit, offset int) (data.DownloadRefs, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		// -1 is "no limit" in SQLite; Postgres accepts LIMIT ALL.
		if r.db.Dialect == sqldb.Postgres {
			return r.query(ctx, `SELECT `+refColumns+` FROM media_download_refs ORDER BY id DESC LIMIT ALL OFFSET ?`, offset)
		}
		limit = -1
	}
	return r.query(ctx, `SELECT `+refColumns+` FROM media_download_refs ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (r *SQLDownloadRefRepo) get(ctx context.Context, where string, arg any) (*data.DownloadRef, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+refColumns+` FROM media_download_refs WHERE `+where), arg)
	ref, err := scanRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotFound
	}
	return ref, err
}

func (r *SQLDownloadRefRepo) Get(ctx context.Context, id int64) (*data.DownloadRef, error) {
	return r.get(ctx, `id=?`, id)
}

func (r *SQLDownloadRefRepo) GetByGID(ctx context.Context, gid string) (*data.DownloadRef, error) {
	return r.get(ctx, `gid=?`, gid)
}

func (r *SQLDownloadRefRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM media_download_refs WHERE id=?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}
