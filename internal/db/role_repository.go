package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// ErrInvalidRole is returned for roles outside the known set.
var ErrInvalidRole = errors.New("invalid role")

// RoleRepository handles role persistence. Principals without an explicit
// assignment hold the plain user role.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a RoleRepository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Get returns the role assigned to a principal.
func (r *RoleRepository) Get(ctx context.Context, user principal.Principal) (models.UserRole, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT role FROM roles WHERE principal = ?
	`, user.String()).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query role: %w", err)
	}
	return models.UserRole(role), nil
}

// Assign sets the role for a principal.
func (r *RoleRepository) Assign(ctx context.Context, user principal.Principal, role models.UserRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (principal, role) VALUES (?, ?)
		ON CONFLICT(principal) DO UPDATE SET role = excluded.role
	`, user.String(), string(role))
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}
