package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credkit/vcschema/internal/watch"
)

func TestWatcher_ReportsDebouncedWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "degree.json")
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0644))

	w, err := watch.New([]string{target}, 50*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("{}"), 0644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte(`{"title":"x"}`), 0644))
	}

	abs, _ := filepath.Abs(target)
	select {
	case name := <-w.Events():
		assert.Equal(t, abs, name)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the watched file")
	}

	// later batches, if the writes straddled a tick, still name only the target
	deadline := time.After(200 * time.Millisecond)
	for drained := false; !drained; {
		select {
		case name := <-w.Events():
			assert.Equal(t, abs, name)
		case <-deadline:
			drained = true
		}
	}

	cancel()
	require.NoError(t, <-done)
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := watch.New([]string{filepath.Join(t.TempDir(), "nope", "x.json")}, 0, nil)
	assert.Error(t, err)
}
