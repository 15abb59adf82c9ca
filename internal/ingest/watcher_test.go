package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func collectPaths(t *testing.T, ch <-chan string, want int, deadline time.Duration) map[string]struct{} {
	t.Helper()
	got := map[string]struct{}{}
	timeout := time.After(deadline)
	for len(got) < want {
		select {
		case p, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed with %d/%d paths", len(got), want)
			}
			got[p] = struct{}{}
		case <-timeout:
			t.Fatalf("timed out with %d/%d paths", len(got), want)
		}
	}
	return got
}

func TestWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("existing-%d.pdf", i))
		if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true})
	if err != nil {
		t.Fatal(err)
	}

	got := collectPaths(t, paths, 3, 5*time.Second)
	for p := range got {
		if filepath.Ext(p) != ".pdf" {
			t.Errorf("non-pdf path emitted: %s", p)
		}
	}
}

// A rapid burst of drops with a tiny debounce window interleaves timer flushes
// with fresh events; every dropped file must still come out exactly once per
// settle, with no lost paths.
func TestWatcherDebouncedBurst(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{dir},
		Debounce: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	const n = 200
	want := map[string]struct{}{}
	for i := 0; i < n; i++ {
		p := filepath.Join(dir, fmt.Sprintf("drop-%03d.pdf", i))
		want[p] = struct{}{}
		if err := os.WriteFile(p, []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := collectPaths(t, paths, n, 10*time.Second)
	for p := range want {
		if _, ok := got[p]; !ok {
			t.Errorf("path never emitted: %s", p)
		}
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	paths, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	timeout := time.After(5 * time.Second)
	for paths != nil || errs != nil {
		select {
		case _, ok := <-paths:
			if !ok {
				paths = nil
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-timeout:
			t.Fatal("channels not closed after cancel")
		}
	}
}
