package remote

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-im/courier/internal/courierd"
	"github.com/courier-im/courier/internal/db"
	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/models"
)

func startDaemon(t *testing.T) string {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := courierd.New(database)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Shutdown)

	return listener.Addr().String()
}

func newIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(filepath.Join(t.TempDir(), "identity.pem"))
	require.NoError(t, err)
	return id
}

func TestProfileRoundTrip(t *testing.T) {
	addr := startDaemon(t)
	alice := New(addr, newIdentity(t))
	bob := New(addr, newIdentity(t))
	ctx := context.Background()

	profile, err := alice.GetCallerUserProfile(ctx)
	require.NoError(t, err)
	assert.False(t, profile.Present())

	require.NoError(t, alice.SaveCallerUserProfile(ctx, models.UserProfile{DisplayName: "Alice"}))

	profile, err = alice.GetCallerUserProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.MustGet().DisplayName)

	// Other users see the saved profile too.
	seen, err := bob.GetUserProfile(ctx, alice.id.Principal)
	require.NoError(t, err)
	assert.Equal(t, "Alice", seen.MustGet().DisplayName)
}

func TestMessagingFlow(t *testing.T) {
	addr := startDaemon(t)
	alice := New(addr, newIdentity(t))
	bob := New(addr, newIdentity(t))
	ctx := context.Background()

	require.NoError(t, alice.SendMessage(ctx, bob.id.Principal, "hello bob"))
	require.NoError(t, alice.SendMessage(ctx, bob.id.Principal, "you there?"))
	require.NoError(t, bob.SendMessage(ctx, alice.id.Principal, "hi alice"))

	msgs, err := bob.GetMessages(ctx, alice.id.Principal)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	count, err := bob.GetUnreadMessageCount(ctx, alice.id.Principal)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, bob.MarkMessagesAsRead(ctx, alice.id.Principal))

	count, err = bob.GetUnreadMessageCount(ctx, alice.id.Principal)
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := alice.GetChatList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Participants[0] == alice.id.Principal ||
		entries[0].Participants[1] == alice.id.Principal)
}

func TestSendMessageRejectsInvalidContent(t *testing.T) {
	addr := startDaemon(t)
	alice := New(addr, newIdentity(t))
	bob := New(addr, newIdentity(t))

	err := alice.SendMessage(context.Background(), bob.id.Principal, "   ")
	require.Error(t, err)

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "sendMessage", remoteErr.Op)
}

func TestRoleAssignmentRequiresAdmin(t *testing.T) {
	addr := startDaemon(t)
	alice := New(addr, newIdentity(t))
	bob := New(addr, newIdentity(t))
	ctx := context.Background()

	role, err := alice.GetCallerUserRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	admin, err := alice.IsCallerAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, admin)

	err = alice.AssignCallerUserRole(ctx, bob.id.Principal, models.RoleGuest)
	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestDaemonUnreachable(t *testing.T) {
	// Grab a port and release it so nothing is listening there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := New(addr, newIdentity(t))

	_, err = client.GetChatList(context.Background())
	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "getChatList", remoteErr.Op)
}
