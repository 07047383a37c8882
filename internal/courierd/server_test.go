package courierd

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-im/courier/internal/db"
	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/wire"
)

func startServer(t *testing.T) string {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := New(database)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Shutdown)

	return listener.Addr().String()
}

func roundTrip(t *testing.T, addr string, req wire.Request) wire.Response {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(payload, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan(), "expected a response line")

	var resp wire.Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	return resp
}

func signedRequest(t *testing.T, id *identity.Identity, req wire.Request) wire.Request {
	t.Helper()
	req.Caller = id.Principal.String()
	req.PubKey = base64.StdEncoding.EncodeToString(id.Public())
	req.Sig = base64.StdEncoding.EncodeToString(id.Sign(wire.SignBase(req)))
	return req
}

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate(filepath.Join(t.TempDir(), "identity.pem"))
	require.NoError(t, err)
	return id
}

func TestRejectsUnsignedRequest(t *testing.T) {
	addr := startServer(t)

	resp := roundTrip(t, addr, wire.Request{ID: "r1", Op: wire.OpGetChatList})
	require.False(t, resp.OK)
	assert.Equal(t, wire.CodeUnauthorized, resp.Error.Code)
	assert.Equal(t, "r1", resp.ID)
}

func TestRejectsTamperedSignature(t *testing.T) {
	addr := startServer(t)
	id := testIdentity(t)

	req := signedRequest(t, id, wire.Request{ID: "r2", Op: wire.OpGetChatList})
	// Re-sign over different content than what is sent.
	req.Op = wire.OpGetCallerUserProfile

	resp := roundTrip(t, addr, req)
	require.False(t, resp.OK)
	assert.Equal(t, wire.CodeUnauthorized, resp.Error.Code)
}

func TestRejectsCallerKeyMismatch(t *testing.T) {
	addr := startServer(t)
	signer := testIdentity(t)
	other := testIdentity(t)

	req := wire.Request{ID: "r3", Op: wire.OpGetChatList, Caller: other.Principal.String()}
	req.PubKey = base64.StdEncoding.EncodeToString(signer.Public())
	req.Sig = base64.StdEncoding.EncodeToString(signer.Sign(wire.SignBase(req)))

	resp := roundTrip(t, addr, req)
	require.False(t, resp.OK)
	assert.Equal(t, wire.CodeUnauthorized, resp.Error.Code)
}

func TestRejectsUnknownOperation(t *testing.T) {
	addr := startServer(t)
	id := testIdentity(t)

	resp := roundTrip(t, addr, signedRequest(t, id, wire.Request{ID: "r4", Op: "dropTables"}))
	require.False(t, resp.OK)
	assert.Equal(t, wire.CodeBadRequest, resp.Error.Code)
}

func TestRejectsMalformedLine(t *testing.T) {
	addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var resp wire.Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	require.False(t, resp.OK)
	assert.Equal(t, wire.CodeBadRequest, resp.Error.Code)
}

func TestAdminCanAssignRoles(t *testing.T) {
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := New(database)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Shutdown)
	addr := listener.Addr().String()

	admin := testIdentity(t)
	user := testIdentity(t)

	// Bootstrap the admin role directly in the store.
	roles := db.NewRoleRepository(database)
	require.NoError(t, roles.Assign(context.Background(), admin.Principal, "admin"))

	resp := roundTrip(t, addr, signedRequest(t, admin, wire.Request{
		ID:   "r5",
		Op:   wire.OpAssignCallerUserRole,
		User: user.Principal.String(),
		Role: "guest",
	}))
	require.True(t, resp.OK, "assign failed: %v", resp.Error)

	resp = roundTrip(t, addr, signedRequest(t, user, wire.Request{
		ID: "r6",
		Op: wire.OpGetCallerUserRole,
	}))
	require.True(t, resp.OK)
	assert.Equal(t, "guest", resp.Role)
}

func TestSignatureCoversParameters(t *testing.T) {
	id := testIdentity(t)
	req := signedRequest(t, id, wire.Request{ID: "x", Op: wire.OpSendMessage, User: "abc", Content: "hi"})

	pub, err := base64.StdEncoding.DecodeString(req.PubKey)
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(req.Sig)
	require.NoError(t, err)

	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), wire.SignBase(req), sig))

	req.Content = "transfer everything"
	assert.False(t, ed25519.Verify(ed25519.PublicKey(pub), wire.SignBase(req), sig))
}
