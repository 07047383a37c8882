// Package config provides context persistence tests.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/courier-im/courier/internal/principal"
)

func TestContext_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{
			name: "empty context",
			ctx:  Context{},
			want: true,
		},
		{
			name: "with peer",
			ctx:  Context{Peer: "abcde-fghij"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ctx.IsEmpty(); got != tt.want {
				t.Errorf("Context.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContext_String(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{
			name: "empty",
			ctx:  Context{},
			want: "(no conversation open)",
		},
		{
			name: "peer with name",
			ctx:  Context{Peer: "abcde-fghij-klmno", PeerName: "Alice"},
			want: "peer:Alice (abcde-fghij)",
		},
		{
			name: "peer without name",
			ctx:  Context{Peer: "abcde-fghij-klmno"},
			want: "peer:abcde-fghij",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ctx.String(); got != tt.want {
				t.Errorf("Context.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContext_SetPeer(t *testing.T) {
	ctx := &Context{}
	ctx.SetPeer(principal.Principal("abcde-fghij"), "Alice")

	if ctx.Peer != "abcde-fghij" {
		t.Errorf("Peer = %v, want abcde-fghij", ctx.Peer)
	}
	if ctx.PeerName != "Alice" {
		t.Errorf("PeerName = %v, want Alice", ctx.PeerName)
	}
	if ctx.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestContext_Clear(t *testing.T) {
	ctx := &Context{Peer: "abcde-fghij", PeerName: "Alice"}
	ctx.Clear()

	if !ctx.IsEmpty() {
		t.Error("context should be empty after Clear()")
	}
	if ctx.PeerName != "" {
		t.Errorf("PeerName = %v, want empty", ctx.PeerName)
	}
}

func TestContextStore_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewContextStore(filepath.Join(tmpDir, "context.yaml"))

	ctx := &Context{
		Peer:     "abcde-fghij-klmno",
		PeerName: "Alice",
	}

	// Save
	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Load
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Peer != ctx.Peer {
		t.Errorf("Peer = %v, want %v", loaded.Peer, ctx.Peer)
	}
	if loaded.PeerName != ctx.PeerName {
		t.Errorf("PeerName = %v, want %v", loaded.PeerName, ctx.PeerName)
	}
}

func TestContextStore_LoadEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewContextStore(filepath.Join(tmpDir, "context.yaml"))

	// Load non-existent file should return empty context
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !loaded.IsEmpty() {
		t.Error("Load() should return empty context for non-existent file")
	}
}

func TestContextStore_Clear(t *testing.T) {
	tmpDir := t.TempDir()
	contextPath := filepath.Join(tmpDir, "context.yaml")
	store := NewContextStore(contextPath)

	ctx := &Context{
		Peer:     "abcde-fghij-klmno",
		PeerName: "Alice",
	}

	// Save first
	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(contextPath); os.IsNotExist(err) {
		t.Fatal("context file should exist after save")
	}

	// Clear
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	// Verify file is removed
	if _, err := os.Stat(contextPath); !os.IsNotExist(err) {
		t.Error("context file should be removed after clear")
	}

	// Load after clear should return empty
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Clear() error = %v", err)
	}
	if !loaded.IsEmpty() {
		t.Error("Load() after Clear() should return empty context")
	}
}
