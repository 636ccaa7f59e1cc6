package texmemo

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/texmemo/backend"
	"github.com/gogpu/texmemo/internal/software"
)

// captureLogger installs a debug-level text logger and restores the
// previous one when the test ends.
func captureLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(l)
	return l, &buf
}

func TestCacheSilentByDefault(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("default logger is enabled")
	}
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 1, 1, 0))
	ref.Release()
	c.Destroy(1)
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	captureLogger(t)
	SetLogger(nil)
	if l := Logger(); l == nil || l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should install a disabled logger")
	}
	if backend.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not silence backend")
	}
}

func TestLifecycleMessages(t *testing.T) {
	_, buf := captureLogger(t)

	c, err := NewCache(WithCreator(software.NewCreator()), WithRecycleBudget(-1))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	ref, _ := c.Attach(rgbaBuffer(4, 2, 2, 0))
	ref.Release()
	c.Destroy(4)
	c.Close()

	out := buf.String()
	for _, want := range []string{
		"level=INFO msg=\"texmemo: provider ready\" backend=custom",
		"level=INFO msg=\"texmemo: cache created\"",
		"level=DEBUG msg=\"texmemo: built texture\" buffer=4",
		"level=DEBUG msg=\"memo: memoized\" key=4",
		"level=DEBUG msg=\"notify: destroy\" key=4 subscribers=1",
		"level=DEBUG msg=\"memo: buffer destroyed\" key=4",
		"level=DEBUG msg=\"texmemo: texture destroyed\" buffer=4",
		"level=INFO msg=\"texmemo: cache closed\" dropped=0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestOwnershipViolationLoggedAtError(t *testing.T) {
	_, buf := captureLogger(t)

	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(2, 1, 1, 0))
	defer ref.Release()
	mustPanic(t, "outstanding", func() { c.Destroy(2) })

	if !strings.Contains(buf.String(), "level=ERROR msg=\"memo: buffer destroyed while texture in use\" key=2 refs=1") {
		t.Errorf("missing error record before the panic, got: %s", buf.String())
	}
}

func TestSetLoggerPropagatesToBackend(t *testing.T) {
	l, buf := captureLogger(t)
	if backend.Logger() != l {
		t.Fatal("SetLogger did not propagate to backend")
	}
	p, err := NewProvider(WithBackend("software"))
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.Close()
	if !strings.Contains(buf.String(), "backend=software") {
		t.Errorf("expected backend selection in log, got: %s", buf.String())
	}
}

func TestWithLoggerOption(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	c := MustNewCache(WithCreator(software.NewCreator()), WithLogger(custom))
	c.Close()

	if Logger() != custom {
		t.Error("WithLogger did not install the logger")
	}
	if !strings.Contains(buf.String(), "cache closed") {
		t.Errorf("expected lifecycle log, got: %s", buf.String())
	}
}

// SetLogger may race with a cache in use.
func TestSetLoggerWhileCaching(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	c := newTestCache(t)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func(id BufferID) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ref, err := c.Attach(rgbaBuffer(id, 1, 1, 0))
				if err != nil {
					t.Errorf("Attach: %v", err)
					return
				}
				ref.Release()
				c.Destroy(id)
			}
		}(BufferID(g + 1))
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
				SetLogger(nil)
			}
		}()
	}
	wg.Wait()
}
