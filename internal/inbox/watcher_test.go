package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/dailynote/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	got     []string
	fail    error
	inRun   bool
	overlap bool
}

func (r *recorder) handle(_ context.Context, content string) error {
	r.mu.Lock()
	if r.inRun {
		r.overlap = true
	}
	r.inRun = true
	r.got = append(r.got, content)
	fail := r.fail
	r.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.inRun = false
	r.mu.Unlock()
	return fail
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func startWatch(t *testing.T, path string, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, 50*time.Millisecond, testutil.Logger(), rec.handle)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_ConsumesAndRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.md")
	rec := &recorder{}
	startWatch(t, path, rec)

	if err := os.WriteFile(path, []byte("today's notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		_, err := os.Stat(path)
		return len(rec.calls()) == 1 && errors.Is(err, os.ErrNotExist)
	}, "inbox file was not consumed")

	if got := rec.calls(); len(got) != 1 || got[0] != "today's notes\n" {
		t.Errorf("calls = %q", got)
	}
}

func TestWatch_FailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.md")
	rec := &recorder{fail: errors.New("push rejected")}
	startWatch(t, path, rec)

	if err := os.WriteFile(path, []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return len(rec.calls()) >= 1
	}, "handler not called")

	time.Sleep(150 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("inbox file removed after failed run: %v", err)
	}
}

func TestWatch_ExistingFileProcessedOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.md")
	if err := os.WriteFile(path, []byte("left over"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatch(t, path, rec)

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return len(rec.calls()) == 1
	}, "existing inbox file not processed")
}

func TestWatch_IgnoresOtherFilesAndEmptyInbox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inbox.md")
	rec := &recorder{}
	startWatch(t, path, rec)

	_ = os.WriteFile(filepath.Join(dir, "other.md"), []byte("ignored"), 0o644)
	_ = os.WriteFile(path, []byte("  \n"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if got := rec.calls(); len(got) != 0 {
		t.Errorf("calls = %q, want none", got)
	}
}

func TestWatch_RunsDoNotOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.md")
	rec := &recorder{fail: errors.New("keep file")}
	startWatch(t, path, rec)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(path, []byte("burst"), 0o644)
		time.Sleep(80 * time.Millisecond)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return len(rec.calls()) >= 1
	}, "handler not called")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.overlap {
		t.Error("handler calls overlapped")
	}
}
