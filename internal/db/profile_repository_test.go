package db

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-im/courier/internal/models"
)

func TestProfileAbsentBeforeSave(t *testing.T) {
	repo := NewProfileRepository(testDB(t))

	profile, err := repo.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, profile.Present())
}

func TestProfileSaveAndGet(t *testing.T) {
	repo := NewProfileRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, alice, models.UserProfile{DisplayName: "Alice"}))

	profile, err := repo.Get(ctx, alice)
	require.NoError(t, err)
	got, ok := profile.Get()
	require.True(t, ok)
	assert.Equal(t, "Alice", got.DisplayName)
}

func TestProfileSaveReplaces(t *testing.T) {
	repo := NewProfileRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, alice, models.UserProfile{DisplayName: "Alice"}))
	require.NoError(t, repo.Save(ctx, alice, models.UserProfile{DisplayName: "Alicia"}))

	profile, err := repo.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", profile.MustGet().DisplayName)
}

func TestProfileSaveRejectsInvalidName(t *testing.T) {
	repo := NewProfileRepository(testDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, repo.Save(ctx, alice, models.UserProfile{DisplayName: "  "}), ErrInvalidDisplayName)
	assert.ErrorIs(t, repo.Save(ctx, alice, models.UserProfile{DisplayName: strings.Repeat("x", 51)}), ErrInvalidDisplayName)
}

func TestRoleDefaultsToUser(t *testing.T) {
	repo := NewRoleRepository(testDB(t))

	role, err := repo.Get(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)
}

func TestRoleAssignAndGet(t *testing.T) {
	repo := NewRoleRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Assign(ctx, alice, models.RoleAdmin))

	role, err := repo.Get(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	assert.ErrorIs(t, repo.Assign(ctx, alice, models.UserRole("owner")), ErrInvalidRole)
}
