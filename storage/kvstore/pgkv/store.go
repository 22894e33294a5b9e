package pgkv

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-portal/core"
)

var nowFunc = time.Now // mockable

type entry struct {
	Key       string      `db:"key"`
	Value     null.String `db:"value"`
	UpdatedAt time.Time   `db:"updated_at"`
}

// Store is a core.KeyValueStore backed by the `kv_entry` postgres table. A NULL value reads as a missing key.
type Store struct {
	db *sqlx.DB
}

var _ core.KeyValueStore = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var e entry
	err := s.db.GetContext(ctx, &e, `SELECT key, value, updated_at FROM kv_entry WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "reading %s", key)
	}
	if !e.Value.Valid {
		return "", core.ErrKeyNotFound
	}
	return e.Value.String, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	e := entry{Key: key, Value: null.StringFrom(value), UpdatedAt: nowFunc().UTC()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO kv_entry (key, value, updated_at) VALUES (:key, :value, :updated_at)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		e,
	)
	return errors.Wrapf(err, "writing %s", key)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entry WHERE key = $1`, key)
	return errors.Wrapf(err, "clearing %s", key)
}

// Purge removes the entries not updated since the given time, eg. drafts abandoned long ago.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_entry WHERE updated_at < $1`, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging entries")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "purging entries")
}
