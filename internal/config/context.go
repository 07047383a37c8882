package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/courier-im/courier/internal/principal"
)

// Context represents the current CLI context: the conversation partner the
// user last had open. The TUI reopens it on the next start.
type Context struct {
	// Peer is the principal of the last active conversation partner.
	Peer string `yaml:"peer,omitempty"`
	// PeerName is the display name at the time of selection (for display).
	PeerName string `yaml:"peer_name,omitempty"`
	// UpdatedAt is when the context was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if no context is set.
func (c *Context) IsEmpty() bool {
	return c.Peer == ""
}

// Clear removes all context.
func (c *Context) Clear() {
	c.Peer = ""
	c.PeerName = ""
	c.UpdatedAt = time.Now()
}

// SetPeer sets the active conversation partner.
func (c *Context) SetPeer(peer principal.Principal, name string) {
	c.Peer = peer.String()
	c.PeerName = name
	c.UpdatedAt = time.Now()
}

// PeerPrincipal returns the stored peer as a validated principal.
func (c *Context) PeerPrincipal() (principal.Principal, error) {
	return principal.FromText(c.Peer)
}

// String returns a human-readable representation of the context.
func (c *Context) String() string {
	if c.IsEmpty() {
		return "(no conversation open)"
	}
	if c.PeerName != "" {
		return fmt.Sprintf("peer:%s (%s)", c.PeerName, shortPrincipal(c.Peer))
	}
	return "peer:" + shortPrincipal(c.Peer)
}

func shortPrincipal(text string) string {
	if len(text) > 11 {
		return text[:11]
	}
	return text
}

// ContextStore manages loading and saving context.
type ContextStore struct {
	path string
	mu   sync.RWMutex
}

// NewContextStore creates a new context store.
// If path is empty, uses the default path (~/.config/courier/context.yaml).
func NewContextStore(path string) *ContextStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "courier", "context.yaml")
	}
	return &ContextStore{path: path}
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context from disk.
// Returns an empty context if the file doesn't exist.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := &Context{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, nil
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}

	return ctx, nil
}

// Save writes the context to disk.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}

	return nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}
