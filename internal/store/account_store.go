package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hmalik/maildash/internal/model"
)

// UpsertAccount inserts or replaces an account row.
// If the account has no ID, a new UUID is generated.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, acct model.Account) error {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (
			id, email, imap_host, imap_port, tls_mode, credential_key,
			enabled, session_expires, last_checkpoint, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Email, acct.Host, acct.Port, string(acct.TLSMode),
		acct.CredentialKey, boolToInt(acct.Enabled),
		nullableTime(acct.SessionExpires), nullableTime(acct.LastCheckpoint),
		acct.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", acct.Email, err)
	}

	return nil
}

// GetAccountByID retrieves a single account by its ID.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM accounts WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying account %s: %w", id, err)
		}
		return nil, fmt.Errorf("getting account %s: %w", id, sql.ErrNoRows)
	}

	acct, err := scanAccount(rows)
	if err != nil {
		return nil, err
	}

	return &acct, nil
}

// GetAccounts retrieves all accounts ordered by email.
func (s *SQLiteStore) GetAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM accounts ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}

	return accounts, rows.Err()
}

// UpdateCheckpoint advances the account's last_checkpoint to the given
// instant. The engine calls this only after a successful, non-cancelled
// window.
func (s *SQLiteStore) UpdateCheckpoint(ctx context.Context, accountID string, checkpoint time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET last_checkpoint = ? WHERE id = ?",
		checkpoint.UTC(), accountID,
	)
	if err != nil {
		return fmt.Errorf("updating checkpoint for account %s: %w", accountID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating checkpoint for account %s: %w", accountID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating checkpoint for account %s: %w", accountID, sql.ErrNoRows)
	}

	return nil
}

// IsNotFound reports whether err indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// scanAccount scans an account row from a sqlx.Rows result set.
func scanAccount(rows *sqlx.Rows) (model.Account, error) {
	var (
		acct           model.Account
		tlsMode        string
		enabled        int
		sessionExpires sql.NullTime
		lastCheckpoint sql.NullTime
		createdAt      time.Time
	)

	err := rows.Scan(
		&acct.ID, &acct.Email, &acct.Host, &acct.Port, &tlsMode,
		&acct.CredentialKey, &enabled, &sessionExpires, &lastCheckpoint,
		&createdAt,
	)
	if err != nil {
		return model.Account{}, fmt.Errorf("scanning account row: %w", err)
	}

	acct.TLSMode = model.TLSMode(tlsMode)
	acct.Enabled = enabled != 0
	acct.CreatedAt = createdAt
	if sessionExpires.Valid {
		t := sessionExpires.Time
		acct.SessionExpires = &t
	}
	if lastCheckpoint.Valid {
		t := lastCheckpoint.Time
		acct.LastCheckpoint = &t
	}

	return acct, nil
}

// nullableTime converts an optional timestamp to a driver value,
// storing UTC and mapping nil to NULL.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
