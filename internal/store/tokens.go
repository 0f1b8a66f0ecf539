// ABOUTME: Token registry methods tracking every issued access token
// ABOUTME: Records are created at login, listed per owner, revoked in place, and pruned once revoked and long expired

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const tokenColumns = `id, user_id, source, issued_at, expires_at, revoked, revoked_at`

// CreateAccessToken records an issued token.
func (s *SQLStore) CreateAccessToken(ctx context.Context, t *AccessToken) error {
	query := s.rebind(`
		INSERT INTO access_tokens (` + tokenColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Source,
		formatTime(t.IssuedAt),
		formatTime(t.ExpiresAt),
		t.Revoked,
		nullableTime(t.RevokedAt),
	)
	if err != nil {
		if uniqueViolation(err) != "" {
			return ErrTokenExists
		}
		return fmt.Errorf("inserting access token: %w", err)
	}

	s.logger.Debug("recorded access token", "id", t.ID, "user_id", t.UserID, "source", t.Source)
	return nil
}

// GetAccessToken retrieves a registry record by token ID (the jti claim)
func (s *SQLStore) GetAccessToken(ctx context.Context, id string) (*AccessToken, error) {
	query := s.rebind(`SELECT ` + tokenColumns + ` FROM access_tokens WHERE id = ?`)

	t, err := scanAccessToken(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying access token: %w", err)
	}
	return t, nil
}

// ListAccessTokens returns the owner's records, newest first.
func (s *SQLStore) ListAccessTokens(ctx context.Context, f TokenFilter) ([]*AccessToken, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("listing access tokens: user id is required")
	}

	conds := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.ExcludeRevoked {
		conds = append(conds, "revoked = ?")
		args = append(args, false)
	}
	if f.ActiveAt != nil {
		conds = append(conds, "expires_at > ?")
		args = append(args, formatTime(*f.ActiveAt))
	}

	query := s.rebind(`SELECT ` + tokenColumns + ` FROM access_tokens WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY issued_at DESC, id DESC`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*AccessToken
	for rows.Next() {
		t, err := scanAccessToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning access token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access tokens: %w", err)
	}
	return tokens, nil
}

// RevokeAccessToken flips the revoked flag with a single conditional UPDATE.
// When no row changes, the record is either missing or already revoked.
func (s *SQLStore) RevokeAccessToken(ctx context.Context, id string) error {
	query := s.rebind(`UPDATE access_tokens SET revoked = ?, revoked_at = ? WHERE id = ? AND revoked = ?`)

	result, err := s.db.ExecContext(ctx, query, true, formatTime(time.Now()), id, false)
	if err != nil {
		return fmt.Errorf("revoking access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		s.logger.Debug("revoked access token", "id", id)
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM access_tokens WHERE id = ?`), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking access token: %w", err)
	}
	return nil
}

// PruneAccessTokens deletes revoked records whose expiry is before the cutoff.
// Records that were never revoked are kept.
func (s *SQLStore) PruneAccessTokens(ctx context.Context, expiredBefore time.Time) (int64, error) {
	query := s.rebind(`DELETE FROM access_tokens WHERE revoked = ? AND expires_at < ?`)

	result, err := s.db.ExecContext(ctx, query, true, formatTime(expiredBefore))
	if err != nil {
		return 0, fmt.Errorf("pruning access tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func scanAccessToken(scanner interface{ Scan(dest ...any) error }) (*AccessToken, error) {
	var t AccessToken
	var issuedAt, expiresAt string
	var revokedAt sql.NullString

	if err := scanner.Scan(&t.ID, &t.UserID, &t.Source, &issuedAt, &expiresAt, &t.Revoked, &revokedAt); err != nil {
		return nil, err
	}

	var err error
	if t.IssuedAt, err = parseTime(issuedAt); err != nil {
		return nil, fmt.Errorf("parsing issued_at: %w", err)
	}
	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if revokedAt.Valid {
		ts, err := parseTime(revokedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing revoked_at: %w", err)
		}
		t.RevokedAt = &ts
	}
	return &t, nil
}
