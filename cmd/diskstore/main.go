// Command diskstore is a small CLI over the storage engine core: it
// opens a single database file and lets the operator allocate pages
// and insert or read tuples through the buffer pool, for manual
// inspection and smoke testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tuannm99/pagekit/internal/buffer"
	"github.com/tuannm99/pagekit/internal/config"
	"github.com/tuannm99/pagekit/internal/disk"
	"github.com/tuannm99/pagekit/internal/page"
	"github.com/tuannm99/pagekit/internal/slotted"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "pagekit.yaml", "path to pagekit yaml config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Warn("diskstore: no config file, using defaults", "path", cfgPath, "err", err)
		cfg = config.Default()
	}
	setLogLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Args()); err != nil {
		log.Fatalf("diskstore: %v", err)
	}
}

func setLogLevel(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(lvl)
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: diskstore [-config=pagekit.yaml] <new-page|put|get> [args...]")
	}

	d, err := disk.Open(cfg.Storage.File)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Storage.File, err)
	}
	defer func() {
		if err := d.Shutdown(); err != nil {
			slog.Error("diskstore: shutdown", "err", err)
		}
	}()

	pool := buffer.NewPool(d, cfg.BufferPool.PoolSize)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	switch args[0] {
	case "new-page":
		return cmdNewPage(pool)
	case "put":
		return cmdPut(pool, args[1:])
	case "get":
		return cmdGet(pool, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdNewPage(pool *buffer.Pool) error {
	frame, id, err := pool.NewPage()
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}
	slotted.View(frame.Data[:]).Init(page.InvalidID, page.InvalidID)
	if err := pool.UnpinPage(id, true); err != nil {
		return fmt.Errorf("unpin: %w", err)
	}
	fmt.Println(uint32(id))
	return nil
}

func cmdPut(pool *buffer.Pool, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: put <page_id> <text>")
	}
	id, err := parsePageID(args[0])
	if err != nil {
		return err
	}

	frame, err := pool.FetchPage(id)
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", id, err)
	}

	slotID, ok := slotted.View(frame.Data[:]).InsertTuple([]byte(args[1]))
	if !ok {
		_ = pool.UnpinPage(id, false)
		return fmt.Errorf("page %d: insufficient space for tuple", id)
	}

	if err := pool.UnpinPage(id, true); err != nil {
		return fmt.Errorf("unpin: %w", err)
	}
	fmt.Println(slotID)
	return nil
}

func cmdGet(pool *buffer.Pool, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: get <page_id> <slot_id>")
	}
	id, err := parsePageID(args[0])
	if err != nil {
		return err
	}
	slotID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad slot id %q: %w", args[1], err)
	}

	frame, err := pool.FetchPage(id)
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", id, err)
	}
	defer func() { _ = pool.UnpinPage(id, false) }()

	tup, ok := slotted.View(frame.Data[:]).GetTuple(slotID)
	if !ok {
		return fmt.Errorf("page %d slot %d: not found or deleted", id, slotID)
	}
	fmt.Println(string(tup))
	return nil
}

func parsePageID(s string) (page.ID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return page.InvalidID, fmt.Errorf("bad page id %q: %w", s, err)
	}
	return page.ID(v), nil
}
