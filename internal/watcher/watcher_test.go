package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menoncello/coding-standard-sub000/internal/logging"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// changeRecorder collects deliveries with their arrival times.
type changeRecorder struct {
	mu         sync.Mutex
	calls      int
	changes    []types.FileChange
	deliveries []time.Time
}

func (r *changeRecorder) handler(changes []types.FileChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.changes = append(r.changes, changes...)
	r.deliveries = append(r.deliveries, time.Now())
	return nil
}

func (r *changeRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *changeRecorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Path)
	}
	return out
}

func testConfig(root string) Config {
	cfg := DefaultConfig()
	cfg.Roots = []string{root}
	cfg.Debounce = 50 * time.Millisecond
	cfg.Throttle = 10 * time.Millisecond
	cfg.MaxBatchWait = 5 * time.Second
	return cfg
}

func startWatcher(t *testing.T, cfg Config) (*FileWatcher, *changeRecorder) {
	t.Helper()

	fw, err := New(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	rec := &changeRecorder{}
	fw.OnChange(rec.handler)
	require.NoError(t, fw.Start(context.Background()))
	return fw, rec
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Roots = []string{"x"}
	cfg.Debounce = 0
	_, err = New(cfg, nil)
	require.Error(t, err)
}

// A burst of writes to one path within the debounce window yields exactly
// one delivery, reflecting the final content.
func TestDebounceCollapsesBurst(t *testing.T) {
	dir := t.TempDir()
	_, rec := startWatcher(t, testConfig(dir))

	target := filepath.Join(dir, "f.json")
	var final []byte
	for i := 0; i < 5; i++ {
		final = []byte{byte('0' + i)}
		require.NoError(t, os.WriteFile(target, final, 0644))
		time.Sleep(4 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rec.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Give any stray duplicate delivery time to show up.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, rec.callCount())

	content, err := os.ReadFile(rec.paths()[0])
	require.NoError(t, err)
	assert.Equal(t, final, content)
}

// Deliveries for distinct paths are spaced by at least the throttle window.
func TestThrottleSpacesDeliveries(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Debounce = 30 * time.Millisecond
	cfg.Throttle = 200 * time.Millisecond
	_, rec := startWatcher(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte("b"), 0644))

	require.Eventually(t, func() bool {
		return rec.callCount() >= 2
	}, 3*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	gap := rec.deliveries[1].Sub(rec.deliveries[0])
	rec.mu.Unlock()
	assert.GreaterOrEqual(t, gap, 180*time.Millisecond, "second delivery was rescheduled, not dropped")
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")}, rec.paths())
}

// The batch sweep drains pending paths even when debounce timers never fire,
// bounding worst-case latency.
func TestBatchSweepDrainsPending(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Debounce = 10 * time.Second
	cfg.MaxBatchWait = 100 * time.Millisecond
	fw, rec := startWatcher(t, cfg)

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	require.Eventually(t, func() bool {
		return len(rec.paths()) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "c.json"),
	}, rec.paths())
	assert.GreaterOrEqual(t, fw.Stats().BatchSweeps, uint64(1))
}

func TestStartTwiceFails(t *testing.T) {
	fw, _ := startWatcher(t, testConfig(t.TempDir()))
	err := fw.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestStopIsIdempotentAndTerminal(t *testing.T) {
	fw, _ := startWatcher(t, testConfig(t.TempDir()))

	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())

	err := fw.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be restarted")
	assert.False(t, fw.Stats().Running)
}

func TestExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Extensions = []string{".json"}
	fw, rec := startWatcher(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rule.json"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return rec.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{filepath.Join(dir, "rule.json")}, rec.paths())
	assert.GreaterOrEqual(t, fw.Stats().EventsFiltered, uint64(1))
}

func TestIgnorePatternFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ignored"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kept"), 0755))

	cfg := testConfig(dir)
	cfg.IgnorePatterns = []string{"**/ignored/**"}
	_, rec := startWatcher(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored", "x.json"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept", "y.json"), []byte("y"), 0644))

	require.Eventually(t, func() bool {
		return rec.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{filepath.Join(dir, "kept", "y.json")}, rec.paths())
}

// A failing or panicking handler never aborts its siblings.
func TestHandlerFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	fw, err := New(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	fw.OnChange(func([]types.FileChange) error {
		panic("handler exploded")
	})
	rec := &changeRecorder{}
	fw.OnChange(rec.handler)

	require.NoError(t, fw.Start(context.Background()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.json"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return rec.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, fw.Stats().HandlerErrors, uint64(1))
}

func TestRemoveHandler(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(testConfig(dir), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	rec := &changeRecorder{}
	token := fw.OnChange(rec.handler)
	fw.RemoveHandler(token)

	require.NoError(t, fw.Start(context.Background()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.json"), []byte("x"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, rec.callCount())
}

func TestUpdateConfigRestartsWatches(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	fw, rec := startWatcher(t, testConfig(dir1))

	cfg := testConfig(dir2)
	require.NoError(t, fw.UpdateConfig(cfg))

	require.NoError(t, os.WriteFile(filepath.Join(dir1, "old.json"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "new.json"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return rec.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{filepath.Join(dir2, "new.json")}, rec.paths())
}

// Rename is ambiguous between create and delete; the watcher probes whether
// the path still exists to decide.
func TestClassifyRenameProbesExistence(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(testConfig(dir), logging.NewNopLogger())
	require.NoError(t, err)

	existing := filepath.Join(dir, "still-here.json")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	change, ok := fw.classify(fsnotify.Event{Name: existing, Op: fsnotify.Rename})
	require.True(t, ok)
	assert.Equal(t, types.ChangeCreate, change.Type)

	change, ok = fw.classify(fsnotify.Event{Name: filepath.Join(dir, "gone.json"), Op: fsnotify.Rename})
	require.True(t, ok)
	assert.Equal(t, types.ChangeDelete, change.Type)
}

func TestClassifyOps(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(testConfig(dir), logging.NewNopLogger())
	require.NoError(t, err)

	path := filepath.Join(dir, "f.json")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	change, ok := fw.classify(fsnotify.Event{Name: path, Op: fsnotify.Create})
	require.True(t, ok)
	assert.Equal(t, types.ChangeCreate, change.Type)
	assert.Equal(t, int64(1), change.Size)

	change, ok = fw.classify(fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.True(t, ok)
	assert.Equal(t, types.ChangeUpdate, change.Type)

	change, ok = fw.classify(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	require.True(t, ok)
	assert.Equal(t, types.ChangeDelete, change.Type)

	_, ok = fw.classify(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.False(t, ok)
}

func TestStatsSnapshot(t *testing.T) {
	dir := t.TempDir()
	fw, _ := startWatcher(t, testConfig(dir))

	stats := fw.Stats()
	assert.True(t, stats.Running)
	assert.GreaterOrEqual(t, stats.WatchedPaths, 1)
	assert.Equal(t, 1, stats.Handlers)
}
