package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("downloads:\n  - name: a.tgz\n    url: http://h/a.tgz\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Catalog, 4)
	failed := make(chan error, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, 20*time.Millisecond,
			func(c *Catalog) { reloaded <- c },
			func(err error) { failed <- err })
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("downloads:\n  - name: b.tgz\n    url: http://h/b.tgz\n"), 0o644))
	select {
	case c := <-reloaded:
		require.Len(t, c.Downloads, 1)
		assert.Equal(t, "b.tgz", c.Downloads[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	require.NoError(t, os.WriteFile(path, []byte("downloads:\n  - name: c.tgz\n    url: ftp://h/c.tgz\n"), 0o644))
	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "c.tgz")
	case <-time.After(3 * time.Second):
		t.Fatal("invalid catalog was not reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
