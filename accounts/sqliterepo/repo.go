// Package sqliterepo provides a SQLite-backed account store. The UNIQUE
// constraints on email and (provider, subject_id) are the atomic backstop the
// Repo contract requires for concurrent duplicate writes.
package sqliterepo

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-user-auth/accounts"
	"github.com/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ accounts.Repo = (*Repo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id              TEXT PRIMARY KEY,
    email           TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL DEFAULT '',
    credential_hash TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS federated_identities (
    provider   TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    PRIMARY KEY (provider, subject_id)
);

CREATE INDEX IF NOT EXISTS idx_federated_identities_account
    ON federated_identities(account_id);
`

// Repo persists accounts in SQLite.
type Repo struct {
	sqlDB *sql.DB
}

// Open opens the account store at path and ensures the schema exists.
func Open(path string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[sqliterepo.Open] storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[sqliterepo.Open] sql.Open")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqliterepo.Open] ping")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqliterepo.Open] apply schema")
	}
	return &Repo{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (r *Repo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := r.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, name, credential_hash, created_at FROM accounts WHERE email = ?`,
		accounts.NormalizeEmail(email))
	return r.scanAccount(ctx, row)
}

func (r *Repo) FindByFederatedIdentity(ctx context.Context, provider, subjectID string) (*accounts.Account, error) {
	row := r.sqlDB.QueryRowContext(ctx,
		`SELECT a.id, a.email, a.name, a.credential_hash, a.created_at
		   FROM accounts a
		   JOIN federated_identities fi ON fi.account_id = a.id
		  WHERE fi.provider = ? AND fi.subject_id = ?`,
		provider, subjectID)
	return r.scanAccount(ctx, row)
}

func (r *Repo) Create(ctx context.Context, draft accounts.Draft) (*accounts.Account, error) {
	account := &accounts.Account{
		ID:                  uuid.New().String(),
		Email:               accounts.NormalizeEmail(draft.Email),
		Name:                draft.Name,
		CredentialHash:      draft.CredentialHash,
		FederatedIdentities: append([]accounts.FederatedIdentity(nil), draft.FederatedIdentities...),
		CreatedAt:           time.Now().UTC(),
	}

	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.Create] begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, credential_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.Name, account.CredentialHash, account.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, accounts.ErrUniquenessViolation
		}
		return nil, errors.Wrap(err, "[Repo.Create] insert account")
	}

	for _, fi := range account.FederatedIdentities {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO federated_identities (provider, subject_id, account_id) VALUES (?, ?, ?)`,
			fi.Provider, fi.SubjectID, account.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, accounts.ErrUniquenessViolation
			}
			return nil, errors.Wrap(err, "[Repo.Create] insert federated identity")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "[Repo.Create] commit")
	}
	return account, nil
}

func (r *Repo) LinkFederatedIdentity(ctx context.Context, accountID, provider, subjectID string) error {
	_, err := r.sqlDB.ExecContext(ctx,
		`INSERT INTO federated_identities (provider, subject_id, account_id) VALUES (?, ?, ?)`,
		provider, subjectID, accountID)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return errors.Wrap(err, "[Repo.LinkFederatedIdentity] insert")
	}

	// The pair exists. Linking is idempotent for the owning account.
	var ownerID string
	row := r.sqlDB.QueryRowContext(ctx,
		`SELECT account_id FROM federated_identities WHERE provider = ? AND subject_id = ?`,
		provider, subjectID)
	if err := row.Scan(&ownerID); err != nil {
		return errors.Wrap(err, "[Repo.LinkFederatedIdentity] lookup owner")
	}
	if ownerID == accountID {
		return nil
	}
	return accounts.ErrUniquenessViolation
}

func (r *Repo) scanAccount(ctx context.Context, row *sql.Row) (*accounts.Account, error) {
	var account accounts.Account
	var createdAt int64
	err := row.Scan(&account.ID, &account.Email, &account.Name, &account.CredentialHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Repo.scanAccount] scan")
	}
	account.CreatedAt = time.UnixMilli(createdAt).UTC()

	rows, err := r.sqlDB.QueryContext(ctx,
		`SELECT provider, subject_id FROM federated_identities WHERE account_id = ? ORDER BY provider, subject_id`,
		account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.scanAccount] query federated identities")
	}
	defer rows.Close()

	for rows.Next() {
		var fi accounts.FederatedIdentity
		if err := rows.Scan(&fi.Provider, &fi.SubjectID); err != nil {
			return nil, errors.Wrap(err, "[Repo.scanAccount] scan federated identity")
		}
		account.FederatedIdentities = append(account.FederatedIdentities, fi)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[Repo.scanAccount] rows")
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
