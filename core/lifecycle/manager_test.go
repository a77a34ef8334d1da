package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScheduleDeletesAfterDelay(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "cache", "processed", "0a1b2c3d.mp3")
	mustWriteFile(t, path)

	release := make(chan time.Time)
	m := NewManager(Config{Workers: 1, QueueSize: 4, Delay: time.Hour})
	var waited time.Duration
	var mu sync.Mutex
	m.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		waited = d
		mu.Unlock()
		return release
	}
	m.Start()
	defer m.Stop()

	if !m.Schedule(path) {
		t.Fatalf("Schedule returned false")
	}
	time.Sleep(20 * time.Millisecond)
	if !exists(path) {
		t.Fatalf("file deleted before the delay elapsed")
	}
	mu.Lock()
	if waited <= 0 || waited > time.Hour {
		t.Errorf("worker waited %v, want (0, 1h]", waited)
	}
	mu.Unlock()

	release <- time.Now()
	deadline := time.Now().Add(2 * time.Second)
	for exists(path) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if exists(path) {
		t.Fatalf("file not deleted after the delay")
	}
}

func TestScheduleRefusesProtectedRoots(t *testing.T) {
	root := t.TempDir()
	sources := filepath.Join(root, "sources")
	path := filepath.Join(sources, "a1b2c3.wav")
	mustWriteFile(t, path)

	m := NewManager(Config{Workers: 1, Protected: []string{sources}})
	m.Start()

	if m.Schedule(path) {
		t.Fatalf("protected path should not be scheduled")
	}
	if m.Schedule(sources) {
		t.Fatalf("protected root itself should not be scheduled")
	}
	if m.Schedule(filepath.Join(sources, "..", "sources", "a1b2c3.wav")) {
		t.Fatalf("unclean path into a protected root should not be scheduled")
	}
	m.Stop()
	if !exists(path) {
		t.Fatalf("protected file was deleted")
	}
}

func TestScheduleSiblingOfProtectedRootIsAllowed(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "sources-old", "x.mp3")
	mustWriteFile(t, path)

	m := NewManager(Config{Workers: 1, Protected: []string{filepath.Join(root, "sources")}})
	m.Start()
	if !m.Schedule(path) {
		t.Fatalf("sibling directory should not count as protected")
	}
	m.Stop()
	if exists(path) {
		t.Fatalf("file should be removed by Stop")
	}
}

func TestStopDrainsQueueWithoutWaiting(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		p := filepath.Join(root, name)
		mustWriteFile(t, p)
		paths = append(paths, p)
	}

	m := NewManager(Config{Workers: 2, QueueSize: 8, Delay: time.Hour})
	m.Start()
	for _, p := range paths {
		if !m.Schedule(p) {
			t.Fatalf("Schedule(%s) returned false", p)
		}
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return")
	}
	for _, p := range paths {
		if exists(p) {
			t.Errorf("%s not deleted on Stop", p)
		}
	}
	if m.Schedule(paths[0]) {
		t.Fatalf("Schedule after Stop should be rejected")
	}
	m.Stop()
}

func TestDeletionErrorsAreSwallowed(t *testing.T) {
	m := NewManager(Config{Workers: 1, QueueSize: 4})
	var mu sync.Mutex
	var attempted []string
	m.remove = func(path string) error {
		mu.Lock()
		attempted = append(attempted, path)
		mu.Unlock()
		if filepath.Base(path) == "missing.mp3" {
			return os.ErrNotExist
		}
		return errors.New("permission denied")
	}
	m.Start()
	m.Schedule("/tmp/work/cache/missing.mp3")
	m.Schedule("/tmp/work/cache/locked.mp3")
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(attempted) != 2 {
		t.Fatalf("attempted = %v, want both paths", attempted)
	}
}

func TestScheduleDropsWhenQueueFull(t *testing.T) {
	block := make(chan time.Time)
	m := NewManager(Config{Workers: 1, QueueSize: 1, Delay: time.Hour})
	m.after = func(time.Duration) <-chan time.Time { return block }
	m.remove = func(string) error { return nil }
	m.Start()
	defer m.Stop()

	if !m.Schedule("/tmp/a.mp3") {
		t.Fatalf("first Schedule should be accepted")
	}
	// Let the worker pick up the first task and park on the delay.
	deadline := time.Now().Add(2 * time.Second)
	for len(m.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !m.Schedule("/tmp/b.mp3") {
		t.Fatalf("second Schedule should fill the queue")
	}
	if m.Schedule("/tmp/c.mp3") {
		t.Fatalf("Schedule on a full queue should drop the task")
	}
}

func TestScheduleEmptyPath(t *testing.T) {
	m := NewManager(Config{})
	if m.Schedule("") {
		t.Fatalf("empty path should be rejected")
	}
}
