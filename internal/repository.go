package internal

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/cockroachdb/errors"
)

//go:embed sql/upsert_credential.sql
var upsertCredentialSQL string

//go:embed sql/select_credential.sql
var selectCredentialSQL string

//go:embed sql/delete_credential.sql
var deleteCredentialSQL string

//go:embed sql/clear_credentials.sql
var clearCredentialsSQL string

// SQLiteStore keeps the session in a local database file so that it survives
// restarts, the way browser local storage survives page reloads.
type SQLiteStore struct {
	db *sql.DB
}

var _ SessionStore = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (repo *SQLiteStore) Get(ctx context.Context, slot Slot) (string, error) {
	var value string
	err := repo.db.QueryRowContext(ctx, selectCredentialSQL, string(slot)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", slot)
	}
	return value, nil
}

func (repo *SQLiteStore) Set(ctx context.Context, slot Slot, value string) error {
	if value == "" {
		if _, err := repo.db.ExecContext(ctx, deleteCredentialSQL, string(slot)); err != nil {
			return errors.Wrapf(err, "failed to delete %s", slot)
		}
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, upsertCredentialSQL, string(slot), value, time.Now().UTC()); err != nil {
		return errors.Wrapf(err, "failed to write %s", slot)
	}
	return nil
}

func (repo *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := repo.db.ExecContext(ctx, clearCredentialsSQL); err != nil {
		return errors.Wrap(err, "failed to clear credentials")
	}
	return nil
}

func (repo *SQLiteStore) Close() error {
	return repo.db.Close()
}

// Check reports the database as a healthcheck entry.
func (repo *SQLiteStore) Check() *PingCheck {
	return &PingCheck{name: "session-sqlite", ping: repo.db.PingContext}
}
