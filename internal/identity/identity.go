// Package identity manages the local keypair and the identity context that
// gates all remote access.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/courier-im/courier/internal/principal"
)

const (
	keyFilePerm = 0o600
	keyDirPerm  = 0o700

	pemBlockType = "COURIER PRIVATE KEY"
)

// ErrNotReady is returned when the identity has not been resolved yet.
var ErrNotReady = errors.New("identity not resolved")

// Identity is a resolved local identity: the signing keypair plus the
// principal derived from the public key.
type Identity struct {
	Principal principal.Principal

	priv ed25519.PrivateKey
}

// Public returns the raw public key.
func (id *Identity) Public() ed25519.PublicKey {
	return id.priv.Public().(ed25519.PublicKey)
}

// Sign signs a message with the identity key.
func (id *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(id.priv, message)
}

// Load reads an identity from the key file at path.
func Load(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("malformed key file %s", path)
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("malformed key file %s: bad seed length %d", path, len(block.Bytes))
	}
	return fromSeed(block.Bytes), nil
}

// Generate creates a fresh identity and writes its key file to path.
func Generate(path string) (*Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), keyDirPerm); err != nil {
		return nil, err
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: seed})
	if err := os.WriteFile(path, encoded, keyFilePerm); err != nil {
		return nil, err
	}
	return fromSeed(seed), nil
}

// LoadOrGenerate loads the identity at path, generating one on first run.
func LoadOrGenerate(path string) (*Identity, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return Generate(path)
}

func fromSeed(seed []byte) *Identity {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		Principal: principal.FromPublicKey(pub),
		priv:      priv,
	}
}

// Context tracks whether the identity has been resolved. Remote access is
// suppressed until Ready reports true; operations attempted before then fail
// with ErrNotReady rather than a remote error.
type Context struct {
	id *Identity
}

// NewContext returns an unresolved context.
func NewContext() *Context {
	return &Context{}
}

// Resolve installs a resolved identity.
func (c *Context) Resolve(id *Identity) {
	c.id = id
}

// Clear drops the resolved identity, e.g. on logout.
func (c *Context) Clear() {
	c.id = nil
}

// Ready reports whether an identity is resolved.
func (c *Context) Ready() bool {
	return c.id != nil
}

// Current returns the resolved identity.
func (c *Context) Current() (*Identity, error) {
	if c.id == nil {
		return nil, ErrNotReady
	}
	return c.id, nil
}

// Principal returns the resolved principal.
func (c *Context) Principal() (principal.Principal, error) {
	if c.id == nil {
		return "", ErrNotReady
	}
	return c.id.Principal, nil
}
