package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/recommender/internal/catalog"
	"github.com/knowledge-engine/recommender/internal/engine"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clothes.csv")
	require.NoError(t, os.WriteFile(path, []byte(clothesCSV), 0644))

	eng := newTestEngine(catalog.NewFileSource(path))
	first, err := eng.Reload(context.Background())
	require.NoError(t, err)

	w, err := engine.NewWatcher(eng, path, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	updated := clothesCSV + "Skirt,Women's Clothing,Red,M,Silk\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		snap := eng.Current()
		return snap != first && snap.Len() == 4
	}, 5*time.Second, 20*time.Millisecond)

	res, err := eng.RecommendByName("Dress", 1)
	require.NoError(t, err)
	assert.Equal(t, "Skirt", res.Recommendations[0].Item.ProductName)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clothes.csv")
	require.NoError(t, os.WriteFile(path, []byte(clothesCSV), 0644))

	eng := newTestEngine(catalog.NewFileSource(path))
	first, err := eng.Reload(context.Background())
	require.NoError(t, err)

	w, err := engine.NewWatcher(eng, path, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	time.Sleep(200 * time.Millisecond)

	assert.Same(t, first, eng.Current())

	cancel()
	<-done
}
