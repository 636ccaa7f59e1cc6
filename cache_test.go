package texmemo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texmemo/internal/software"
)

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, _ := newTestCacheWithCreator(t, opts...)
	return c
}

func newTestCacheWithCreator(t *testing.T, opts ...Option) (*Cache, *software.Creator) {
	t.Helper()
	sc := software.NewCreator()
	c, err := NewCache(append([]Option{WithCreator(sc)}, opts...)...)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	t.Cleanup(c.Close)
	return c, sc
}

func mustPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", contains)
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, contains) {
			t.Fatalf("panic = %v, want it to contain %q", r, contains)
		}
	}()
	fn()
}

func TestCacheAttachBuildsOnce(t *testing.T) {
	c, sc := newTestCacheWithCreator(t)
	buf := rgbaBuffer(1, 4, 4, 0)

	a, err := c.Attach(buf)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	b, err := c.Attach(buf)
	if err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if !a.Equal(b) {
		t.Error("second Attach returned a different texture")
	}
	if sc.Created() != 1 {
		t.Errorf("created %d textures, want 1", sc.Created())
	}

	tex := a.Get()
	if tex.GetRefCount() != 2 || tex.GetRefCountPrivate() != 1 {
		t.Errorf("counts = %d/%d, want 2 public 1 private", tex.GetRefCount(), tex.GetRefCountPrivate())
	}
	a.Release()
	b.Release()
	if tex.GetRefCount() != 0 || tex.Destroyed() {
		t.Error("cache's private reference did not keep the texture alive")
	}
	if c.Len() != 1 || !c.Contains(1) {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

// A client attaches B1, the compositor samples T1, the client destroys B1.
func TestCacheBufferLifecycle(t *testing.T) {
	c, sc := newTestCacheWithCreator(t, WithRecycleBudget(-1))

	ref, err := c.Attach(rgbaBuffer(1, 8, 8, 0))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ref.Release()

	frame, ok := c.Texture(1)
	if !ok {
		t.Fatal("Texture(1) missed after Attach")
	}
	t1 := frame.Get()
	frame.Release()

	if n := c.Destroy(1); n != 1 {
		t.Errorf("Destroy fired %d callbacks, want 1", n)
	}
	if !t1.Destroyed() {
		t.Error("texture alive after its buffer was destroyed")
	}
	if _, ok := c.Texture(1); ok {
		t.Error("Texture(1) hit after Destroy")
	}
	if sc.Live() != 0 {
		t.Errorf("live backings = %d, want 0", sc.Live())
	}
	if c.Hub().Len() != 0 {
		t.Errorf("%d subscriptions left armed", c.Hub().Len())
	}
	if c.Destroy(1) != 0 {
		t.Error("second Destroy fired callbacks")
	}
}

func TestCacheDestroyWithOutstandingReferencePanics(t *testing.T) {
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	defer ref.Release()

	mustPanic(t, "1 texture references outstanding", func() {
		c.Destroy(1)
	})
}

func TestCacheDestroyRecyclesBacking(t *testing.T) {
	c, sc := newTestCacheWithCreator(t)

	ref, _ := c.Attach(rgbaBuffer(1, 16, 16, 0))
	backing := ref.Get().Backing()
	ref.Release()
	c.Destroy(1)

	next, err := c.Attach(rgbaBuffer(2, 16, 16, 1))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer next.Release()

	if next.Get().Backing() != backing {
		t.Error("buffer of the same size did not reuse the destroyed buffer's backing")
	}
	if sc.Created() != 1 {
		t.Errorf("created = %d, want 1", sc.Created())
	}
	if s := c.Stats(); s.Provider.Reused != 1 || s.Memo.Evicted != 1 {
		t.Errorf("stats = %v", s)
	}
}

func TestCacheCommit(t *testing.T) {
	c := newTestCache(t)

	ref, err := c.Commit(rgbaBuffer(1, 4, 4, 1))
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	tex := ref.Get()
	ref.Release()

	ref, err = c.Commit(rgbaBuffer(1, 4, 4, 2))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ref.Get() != tex {
		t.Fatal("Commit replaced the cached texture")
	}
	st := softwareBacking(t, tex)
	if st.Image().Pix[0] != 2 {
		t.Errorf("pixel = %d, want committed contents", st.Image().Pix[0])
	}
	ref.Release()

	ref, err = c.Commit(rgbaBuffer(1, 4, 4, 5), image.Rect(0, 0, 1, 1))
	if err != nil {
		t.Fatalf("damaged Commit: %v", err)
	}
	ref.Release()
	img := st.Image()
	if img.Pix[0] != 5 || img.RGBAAt(3, 3).R != 2 {
		t.Error("damaged Commit uploaded the wrong pixels")
	}
}

func TestCacheCommitSizeMismatch(t *testing.T) {
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 4, 4, 0))
	tex := ref.Get()
	ref.Release()

	_, err := c.Commit(rgbaBuffer(1, 8, 8, 0))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Commit = %v, want ErrSizeMismatch", err)
	}
	if tex.GetRefCount() != 0 {
		t.Errorf("failed Commit leaked %d references", tex.GetRefCount())
	}
}

func TestCacheAttachErrors(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.Attach(nil); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("Attach(nil) = %v, want ErrNilBuffer", err)
	}

	failing := MustNewCache(WithCreator(failingCreator{}))
	defer failing.Close()
	if _, err := failing.Attach(rgbaBuffer(1, 1, 1, 0)); !errors.Is(err, ErrTextureCreationFailed) {
		t.Errorf("Attach = %v, want ErrTextureCreationFailed", err)
	}
	if failing.Len() != 0 || failing.Hub().Len() != 0 {
		t.Error("failed Attach left an entry behind")
	}
}

func TestCacheDestroyAsync(t *testing.T) {
	c := newTestCache(t, WithPump(4))

	ref, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	tex := ref.Get()
	ref.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.DestroyAsync(ctx, 1); err != nil {
		t.Fatalf("DestroyAsync: %v", err)
	}
	if !tex.Destroyed() || c.Len() != 0 {
		t.Error("DestroyAsync returned before the entry was dropped")
	}
	if s := c.Stats(); s.Delivered != 1 {
		t.Errorf("Delivered = %d, want 1", s.Delivered)
	}

	c.Close()
	if err := c.DestroyAsync(ctx, 2); err == nil {
		t.Error("DestroyAsync succeeded after Close")
	}
}

func TestCacheDestroyAsyncWithoutPump(t *testing.T) {
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	ref.Release()

	if err := c.DestroyAsync(context.Background(), 1); err != nil {
		t.Fatalf("DestroyAsync: %v", err)
	}
	if c.Len() != 0 {
		t.Error("entry survived DestroyAsync")
	}
}

func TestCacheHubSharedWithOtherSubscribers(t *testing.T) {
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	ref.Release()

	var fired bool
	c.Hub().Subscribe(1, func() {
		// The cache entry was subscribed first and is already gone.
		fired = !c.Contains(1)
	})
	if n := c.Destroy(1); n != 2 {
		t.Errorf("Destroy fired %d callbacks, want 2", n)
	}
	if !fired {
		t.Error("second subscriber did not observe the evicted entry")
	}
}

func TestCacheClose(t *testing.T) {
	sc := software.NewCreator()
	c := MustNewCache(WithCreator(sc))

	held, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	other, _ := c.Attach(rgbaBuffer(2, 2, 2, 0))
	other.Release()

	c.Close()
	c.Close()

	if c.Len() != 0 || c.Hub().Len() != 0 {
		t.Errorf("Close left %d entries, %d subscriptions", c.Len(), c.Hub().Len())
	}
	if held.Get().Destroyed() {
		t.Error("Close destroyed a texture still held by a consumer")
	}
	if _, err := c.Attach(rgbaBuffer(3, 1, 1, 0)); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Attach after Close = %v, want ErrCacheClosed", err)
	}
	if _, err := c.Commit(rgbaBuffer(3, 1, 1, 0)); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Commit after Close = %v, want ErrCacheClosed", err)
	}

	held.Release()
	if sc.Live() != 0 {
		t.Errorf("live backings = %d after final release, want 0", sc.Live())
	}
}

func TestCacheWithSharedProvider(t *testing.T) {
	p, sc := newTestProvider(t)
	c := NewCacheWithProvider(p)

	ref, _ := c.Attach(rgbaBuffer(1, 2, 2, 0))
	ref.Release()
	c.Close()

	again, err := p.Build(rgbaBuffer(2, 2, 2, 0))
	if err != nil {
		t.Fatalf("provider closed together with a cache that does not own it: %v", err)
	}
	again.Release()
	if sc.Created() != 1 {
		t.Errorf("created = %d, want the parked backing reused", sc.Created())
	}

	mustPanic(t, "nil provider", func() { NewCacheWithProvider(nil) })
}

// gatedCreator blocks inside NewTextureFromRGBA until gate is closed.
type gatedCreator struct {
	software.Creator
	entered chan struct{}
	gate    chan struct{}
}

func newGatedCreator() *gatedCreator {
	return &gatedCreator{entered: make(chan struct{}, 1), gate: make(chan struct{})}
}

func (g *gatedCreator) NewTextureFromRGBA(w, h int, data []byte) (gpucontext.Texture, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.Creator.NewTextureFromRGBA(w, h, data)
}

// notReturned fails the test if ch delivers within a short grace period.
func notReturned[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("%s returned %v while the buffer was being built", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCacheDestroyWaitsForInFlightBuild(t *testing.T) {
	gc := newGatedCreator()
	c := MustNewCache(WithCreator(gc), WithRecycleBudget(-1))
	defer c.Close()

	preloaded := make(chan error, 1)
	go func() { preloaded <- c.Preload(rgbaBuffer(9, 2, 2, 0)) }()
	<-gc.entered

	destroyed := make(chan int, 1)
	go func() { destroyed <- c.Destroy(9) }()
	notReturned(t, destroyed, "Destroy")

	close(gc.gate)
	if err := <-preloaded; err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if n := <-destroyed; n != 1 {
		t.Errorf("Destroy fired %d callbacks, want 1", n)
	}
	if c.Contains(9) || c.Len() != 0 || c.Hub().Len() != 0 {
		t.Errorf("destroyed buffer still cached: Len=%d subscribers=%d", c.Len(), c.Hub().Len())
	}
	if gc.Live() != 0 {
		t.Errorf("live backings = %d, want 0", gc.Live())
	}
}

func TestCacheDestroyAsyncWaitsForInFlightBuild(t *testing.T) {
	gc := newGatedCreator()
	c := MustNewCache(WithCreator(gc), WithPump(4))
	defer c.Close()

	preloaded := make(chan error, 1)
	go func() { preloaded <- c.Preload(rgbaBuffer(3, 2, 2, 0)) }()
	<-gc.entered

	destroyed := make(chan error, 1)
	go func() { destroyed <- c.DestroyAsync(context.Background(), 3) }()
	notReturned(t, destroyed, "DestroyAsync")

	close(gc.gate)
	if err := <-preloaded; err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if err := <-destroyed; err != nil {
		t.Fatalf("DestroyAsync: %v", err)
	}
	if c.Contains(3) {
		t.Error("destroyed buffer still cached")
	}
}

func TestCacheCloseWaitsForInFlightBuild(t *testing.T) {
	gc := newGatedCreator()
	p := MustNewProvider(WithCreator(gc), WithRecycleBudget(-1))
	defer p.Close()
	c := NewCacheWithProvider(p)

	preloaded := make(chan error, 1)
	go func() { preloaded <- c.Preload(rgbaBuffer(5, 2, 2, 0)) }()
	<-gc.entered

	closed := make(chan struct{}, 1)
	go func() {
		c.Close()
		closed <- struct{}{}
	}()
	notReturned(t, closed, "Close")

	close(gc.gate)
	if err := <-preloaded; err != nil {
		t.Fatalf("Preload: %v", err)
	}
	<-closed
	if c.Len() != 0 || c.Hub().Len() != 0 {
		t.Errorf("Close left Len=%d subscribers=%d", c.Len(), c.Hub().Len())
	}
	if gc.Live() != 0 {
		t.Errorf("live backings = %d after Close, want 0", gc.Live())
	}
	if err := c.Preload(rgbaBuffer(6, 1, 1, 0)); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Preload after Close = %v, want ErrCacheClosed", err)
	}
}

func TestCachePreload(t *testing.T) {
	c, sc := newTestCacheWithCreator(t)
	if err := c.Preload(rgbaBuffer(1, 2, 2, 0)); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	ref, ok := c.Texture(1)
	if !ok {
		t.Fatal("Texture(1) missed after Preload")
	}
	if n := ref.Get().GetRefCount(); n != 1 {
		t.Errorf("public count = %d, want 1 (only this lookup)", n)
	}
	ref.Release()
	if err := c.Preload(rgbaBuffer(1, 2, 2, 0)); err != nil || sc.Created() != 1 {
		t.Errorf("second Preload: err=%v created=%d, want cached texture", err, sc.Created())
	}
	if err := c.Preload(nil); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("Preload(nil) = %v, want ErrNilBuffer", err)
	}
}

func TestCacheConcurrentLookups(t *testing.T) {
	c := newTestCache(t, WithPump(0))
	const buffers = 8
	for id := BufferID(1); id <= buffers; id++ {
		ref, err := c.Attach(rgbaBuffer(id, 4, 4, byte(id)))
		if err != nil {
			t.Fatalf("Attach: %v", err)
		}
		ref.Release()
	}

	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := BufferID(i%buffers + 1)
				ref, ok := c.Texture(id)
				if !ok {
					t.Errorf("Texture(%d) missed", id)
					return
				}
				if ref.Get().Buffer() != id {
					t.Errorf("Texture(%d) returned buffer %d", id, ref.Get().Buffer())
				}
				ref.Release()
			}
		}(g)
	}
	wg.Wait()

	for id := BufferID(1); id <= buffers; id++ {
		ref, _ := c.Texture(id)
		if n := ref.Get().GetRefCount(); n != 1 {
			t.Errorf("buffer %d: public count %d, want 1 (only this lookup)", id, n)
		}
		ref.Release()
		if err := c.DestroyAsync(context.Background(), id); err != nil {
			t.Fatalf("DestroyAsync: %v", err)
		}
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after destroying every buffer", c.Len())
	}
}

func TestCacheStatsString(t *testing.T) {
	c := newTestCache(t)
	ref, _ := c.Attach(rgbaBuffer(1, 1, 1, 0))
	ref.Release()
	if s := c.Stats().String(); !strings.Contains(s, "Cache[1 entries, 1 subscribers") {
		t.Errorf("String() = %q", s)
	}
}

func BenchmarkCacheTexture(b *testing.B) {
	c := MustNewCache(WithCreator(software.NewCreator()))
	defer c.Close()
	ref, _ := c.Attach(rgbaBuffer(1, 64, 64, 0))
	ref.Release()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r, _ := c.Texture(1)
			r.Release()
		}
	})
}
