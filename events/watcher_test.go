package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_PublishesOnSiblingWrite(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	ch := bus.Subscribe(TopicStorageChanged)

	w, err := NewWatcher(dir, bus)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Simulate another process replacing the persisted cart.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guest_cart.json"), []byte(`{}`), 0o644))

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a storage.changed notification")
	}
}

func TestWatcher_IgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	ch := bus.Subscribe(TopicStorageChanged)

	w, err := NewWatcher(dir, bus)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "guest_cart-123.tmp"), []byte(`{}`), 0o644))

	select {
	case <-ch:
		t.Fatal("temp file writes must not be announced")
	case <-time.After(200 * time.Millisecond):
	}
}
