// Command texmemo-demo simulates a compositor serving clients that attach,
// commit and destroy pixel buffers.
//
// Each client runs on its own goroutine. Destroy notifications are delivered
// by the cache's notification pump, so eviction happens on a different
// goroutine than the one that committed the buffer.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/texmemo"
	_ "github.com/gogpu/texmemo/backend/wgpu" // register the GPU backend
)

func main() {
	conf := defaultConfig()
	var (
		configPath  = flag.String("config", "", "TOML config file")
		writePath   = flag.String("write-config", "", "write the effective config to this file and exit")
		backendName = flag.String("backend", "", "backend name (software, wgpu); empty selects the best available")
		clients     = flag.Int("clients", 0, "number of clients (overrides config)")
		frames      = flag.Int("frames", 0, "frames per client (overrides config)")
	)
	flag.Parse()

	if *configPath != "" {
		if err := readConfig(*configPath, &conf); err != nil {
			log.Fatal(err)
		}
	}
	if *backendName != "" {
		conf.Backend = *backendName
	}
	if *clients > 0 {
		conf.Clients = *clients
	}
	if *frames > 0 {
		conf.Frames = *frames
	}
	if *writePath != "" {
		if err := writeConfigFile(*writePath, &conf); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, conf); err != nil {
		log.Fatal(err)
	}
}

func writeConfigFile(path string, conf *config) error {
	if err := writeConfig(path, conf); err != nil {
		return err
	}
	log.Printf("Config written to %s", path)
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func run(ctx context.Context, conf config) error {
	opts := []texmemo.Option{
		texmemo.WithBackend(conf.Backend),
		texmemo.WithLogger(newLogger(conf.LogLevel)),
		texmemo.WithMaxTextureSize(conf.MaxTextureSize),
		texmemo.WithPump(conf.PumpDepth),
	}
	switch {
	case conf.RecycleBudgetKB > 0:
		opts = append(opts, texmemo.WithRecycleBudget(conf.RecycleBudgetKB<<10))
	case conf.RecycleBudgetKB < 0:
		opts = append(opts, texmemo.WithRecycleBudget(-1))
	}

	cache, err := texmemo.NewCache(opts...)
	if err != nil {
		return err
	}
	defer cache.Close()
	log.Printf("Backend: %s", cache.Provider().Backend())

	var (
		wg     sync.WaitGroup
		nextID atomic.Uint64
		errs   = make(chan error, conf.Clients)
	)
	for i := range conf.Clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &client{id: i, cache: cache, conf: conf, nextID: &nextID}
			if err := c.run(ctx); err != nil {
				errs <- fmt.Errorf("client %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}

	log.Print(cache.Stats())
	return nil
}

// client owns one buffer at a time and replaces it on resize.
type client struct {
	id     int
	cache  *texmemo.Cache
	conf   config
	nextID *atomic.Uint64
	buf    *texmemo.Buffer
}

func (c *client) run(ctx context.Context) error {
	w, h := c.conf.Width, c.conf.Height
	c.buf = c.newBuffer(w, h)
	for frame := 0; frame < c.conf.Frames; frame++ {
		if ctx.Err() != nil {
			break
		}
		if c.conf.ResizeEvery > 0 && frame > 0 && frame%c.conf.ResizeEvery == 0 {
			if err := c.cache.DestroyAsync(ctx, c.buf.ID); err != nil {
				return err
			}
			w, h = h, w+16
			c.buf = c.newBuffer(w, h)
		}

		c.paint(frame)
		damage := image.Rect(0, frame%h, w, frame%h+1)
		tex, err := c.cache.Commit(c.buf, damage)
		if err != nil {
			return err
		}
		// Composite: the frame holds the texture only while drawing.
		tex.Release()

		if ref, ok := c.cache.Texture(c.buf.ID); ok {
			ref.Release()
		}
	}
	return c.cache.DestroyAsync(context.WithoutCancel(ctx), c.buf.ID)
}

func (c *client) newBuffer(w, h int) *texmemo.Buffer {
	id := texmemo.BufferID(c.nextID.Add(1))
	return &texmemo.Buffer{
		ID:     id,
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Opaque: true,
		Pix:    make([]byte, w*h*4),
	}
}

// paint draws one scanline per frame.
func (c *client) paint(frame int) {
	row := c.buf.Width * 4
	y := frame % c.buf.Height
	line := c.buf.Pix[y*row : (y+1)*row]
	for i := 0; i < len(line); i += 4 {
		line[i] = byte(frame)
		line[i+1] = byte(c.id * 40)
		line[i+2] = byte(i)
	}
}
