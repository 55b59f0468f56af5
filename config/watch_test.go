package config

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[[hotkeys]]\nname = \"a\"\nkey = 1\n")

	var mu sync.Mutex
	var loaded []*Config
	w := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		loaded = append(loaded, cfg)
	})
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[[hotkeys]]\nname = \"b\"\nkey = 2\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(loaded) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	last := loaded[len(loaded)-1]
	mu.Unlock()
	require.Len(t, last.Hotkeys, 1)
	assert.Equal(t, "b", last.Hotkeys[0].Name)
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	called := make(chan struct{}, 1)
	w := NewWatcher(path, func(*Config) { called <- struct{}{} })
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[resolver"), 0o644))

	select {
	case err := <-w.Errors():
		assert.Error(t, err)
	case <-called:
		t.Fatal("invalid config must not be applied")
	case <-time.After(2 * time.Second):
		t.Fatal("no reload error reported")
	}
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w := NewWatcher("unused.toml", func(*Config) {})
	assert.NoError(t, w.Close())
}

func TestWatcher_NoReloadAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	called := make(chan struct{}, 4)
	w := NewWatcher(path, func(*Config) { called <- struct{}{} })
	w.debounce = 200 * time.Millisecond
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(path, []byte("[[hotkeys]]\nname = \"a\"\nkey = 1\n"), 0o644))
	time.Sleep(50 * time.Millisecond) // event delivered, reload still pending
	require.NoError(t, w.Close())

	select {
	case <-called:
		t.Fatal("onChange ran after Close")
	case <-time.After(2 * w.debounce):
	}
}

func TestWatcher_ReloadSkipsCancelled(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")

	called := false
	w := NewWatcher(path, func(*Config) { called = true })
	require.NoError(t, w.Close())

	w.reload()
	assert.False(t, called)
}
