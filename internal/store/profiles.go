// ABOUTME: Profile store methods for the SQLite store
// ABOUTME: Profiles are keyed by user ID and changes notify post and comment subscriptions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/pairchat/internal/feed"
)

const profileColumns = `user_id, email, display_name, bio, career, photo_url, created_at, updated_at`

// GetProfile retrieves a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfiles retrieves the profiles that exist among userIDs.
func (s *SQLiteStore) GetProfiles(ctx context.Context, userIDs []string) (map[string]*Profile, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	profiles := make(map[string]*Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id IN (` + placeholders + `)`

	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}

	return profiles, nil
}

// CreateProfile inserts a new profile. An existing profile for the same user
// is left untouched and ErrDuplicateProfile is returned.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p *Profile) error {
	if s.isClosed() {
		return ErrClosed
	}

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Email,
		p.DisplayName,
		p.Bio,
		p.Career,
		p.PhotoURL,
		p.CreatedAt.Format(timeFormat),
		p.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProfile
		}
		return fmt.Errorf("inserting profile: %w", err)
	}

	s.logger.Debug("created profile", "user_id", p.ID)
	s.changes.Publish(profilesTopic, feed.Change{Topic: profilesTopic, ID: p.ID})
	return nil
}

// UpdateProfile applies patch to the stored profile inside a transaction.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (_ *Profile, err error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	updated.UpdatedAt = s.now()

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET email = ?, display_name = ?, bio = ?, career = ?, photo_url = ?, updated_at = ?
		WHERE user_id = ?
	`,
		updated.Email,
		updated.DisplayName,
		updated.Bio,
		updated.Career,
		updated.PhotoURL,
		updated.UpdatedAt.Format(timeFormat),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing profile: %w", err)
	}

	s.logger.Debug("updated profile", "user_id", userID)
	s.changes.Publish(profilesTopic, feed.Change{Topic: profilesTopic, ID: userID})
	return &updated, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile scans one profile row. sql.ErrNoRows is returned unwrapped.
func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.Bio,
		&p.Career,
		&p.PhotoURL,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &p, nil
}
