package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// ErrInvalidDisplayName is returned when a profile fails store-side validation.
var ErrInvalidDisplayName = errors.New("invalid display name")

// ProfileRepository handles user profile persistence.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns the profile for a principal, or absent when none was ever
// saved. Absence is a value, not an error.
func (r *ProfileRepository) Get(ctx context.Context, user principal.Principal) (models.Option[models.UserProfile], error) {
	var displayName string
	err := r.db.QueryRowContext(ctx, `
		SELECT display_name FROM profiles WHERE principal = ?
	`, user.String()).Scan(&displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.None[models.UserProfile](), nil
	}
	if err != nil {
		return models.None[models.UserProfile](), fmt.Errorf("failed to query profile: %w", err)
	}
	return models.Some(models.UserProfile{DisplayName: displayName}), nil
}

// Save creates or replaces the profile owned by a principal.
func (r *ProfileRepository) Save(ctx context.Context, user principal.Principal, profile models.UserProfile) error {
	if result := models.ValidateDisplayName(profile.DisplayName); !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidDisplayName, result.Error)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (principal, display_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(principal) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
	`, user.String(), profile.DisplayName, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
