//go:build property

package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/menoncello/coding-standard-sub000/internal/logging"
	"github.com/menoncello/coding-standard-sub000/internal/types"
)

// TestWatcherProperties validates pipeline invariants across generated
// workloads.
func TestWatcherProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("a burst to one path delivers at most once", prop.ForAll(
		func(writeCount int) bool {
			if writeCount < 1 || writeCount > 10 {
				return true
			}

			dir := t.TempDir()
			cfg := DefaultConfig()
			cfg.Roots = []string{dir}
			cfg.Debounce = 60 * time.Millisecond
			cfg.Throttle = 5 * time.Millisecond
			cfg.MaxBatchWait = 5 * time.Second

			fw, err := New(cfg, logging.NewNopLogger())
			if err != nil {
				return false
			}
			defer fw.Stop()

			var mu sync.Mutex
			calls := 0
			fw.OnChange(func(changes []types.FileChange) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})

			if err := fw.Start(context.Background()); err != nil {
				return false
			}

			target := filepath.Join(dir, "burst.json")
			for i := 0; i < writeCount; i++ {
				if err := os.WriteFile(target, []byte(fmt.Sprintf("%d", i)), 0644); err != nil {
					return false
				}
				time.Sleep(3 * time.Millisecond)
			}

			time.Sleep(cfg.Debounce + 200*time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			return calls == 1
		},
		gen.IntRange(1, 10),
	))

	properties.Property("every distinct path is eventually delivered", prop.ForAll(
		func(fileCount int) bool {
			if fileCount < 1 || fileCount > 8 {
				return true
			}

			dir := t.TempDir()
			cfg := DefaultConfig()
			cfg.Roots = []string{dir}
			cfg.Debounce = 30 * time.Millisecond
			cfg.Throttle = 5 * time.Millisecond
			cfg.MaxBatchWait = 150 * time.Millisecond

			fw, err := New(cfg, logging.NewNopLogger())
			if err != nil {
				return false
			}
			defer fw.Stop()

			var mu sync.Mutex
			seen := make(map[string]bool)
			fw.OnChange(func(changes []types.FileChange) error {
				mu.Lock()
				for _, c := range changes {
					seen[c.Path] = true
				}
				mu.Unlock()
				return nil
			})

			if err := fw.Start(context.Background()); err != nil {
				return false
			}

			for i := 0; i < fileCount; i++ {
				path := filepath.Join(dir, fmt.Sprintf("rule-%d.json", i))
				if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
					return false
				}
			}

			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				mu.Lock()
				got := len(seen)
				mu.Unlock()
				if got == fileCount {
					return true
				}
				time.Sleep(20 * time.Millisecond)
			}
			return false
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
