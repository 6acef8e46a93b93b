// Command memengine-cli is a thin demonstration harness around pkg/engine.
//
// It loads configuration from ~/.config/memengine/config.yaml, overridden
// by MEMENGINE_* environment variables, and exposes subcommands for seven
// of the unified memory operations (store, search, list, health, stats,
// consolidate, ingest). There is no network listener here: memengine-cli
// talks to pkg/engine in-process, per spec.md's explicit non-goal of a
// protocol server.
//
// Usage (flags go before the positional text, since flag parsing stops at
// the first non-flag argument):
//
//	memengine-cli store --tags work,notes "some content"
//	memengine-cli search --limit 5 "some query"
//	memengine-cli list --page 1
//	memengine-cli health
//	memengine-cli stats
//	memengine-cli consolidate --action status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fyrsmithlabs/memengine/internal/config"
	"github.com/fyrsmithlabs/memengine/internal/logging"
	"github.com/fyrsmithlabs/memengine/pkg/engine"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "memengine-cli: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: memengine-cli <store|search|list|health|stats|consolidate|ingest> [flags]")
}

func run(ctx context.Context, cmd string, args []string) error {
	fc, err := config.LoadWithFile("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg := engine.FromFileConfig(fc)
	cfg.Logging = logging.NewDefaultConfig()

	e, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer e.Close()

	switch cmd {
	case "store":
		return runStore(ctx, e, args)
	case "search":
		return runSearch(ctx, e, args)
	case "list":
		return runList(ctx, e, args)
	case "health":
		return runHealth(ctx, e)
	case "stats":
		return runStats(ctx, e)
	case "consolidate":
		return runConsolidate(ctx, e, args)
	case "ingest":
		return runIngest(ctx, e, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runStore(ctx context.Context, e *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	tags := fs.String("tags", "", "comma-separated tags")
	memType := fs.String("memory-type", "", "memory type classification")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("store requires content argument")
	}
	result, err := e.MemoryStore(ctx, engine.StoreRequest{
		Content:    strings.Join(fs.Args(), " "),
		Tags:       splitCSV(*tags),
		MemoryType: *memType,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSearch(ctx context.Context, e *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	mode := fs.String("mode", "", "semantic | exact | hybrid")
	limit := fs.Int("limit", 10, "max results")
	timeExpr := fs.String("time", "", "time expression, e.g. 'yesterday'")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := e.MemorySearch(ctx, engine.SearchRequest{
		Query:    strings.Join(fs.Args(), " "),
		Mode:     engine.SearchMode(*mode),
		TimeExpr: *timeExpr,
		Tags:     splitCSV(*tags),
		Limit:    *limit,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runList(ctx context.Context, e *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 20, "page size")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := e.MemoryList(ctx, engine.ListRequest{
		Page:     *page,
		PageSize: *pageSize,
		Tags:     splitCSV(*tags),
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runHealth(ctx context.Context, e *engine.Engine) error {
	resp, err := e.MemoryHealth(ctx)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runStats(ctx context.Context, e *engine.Engine) error {
	resp, err := e.MemoryStats(ctx)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runConsolidate(ctx context.Context, e *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	action := fs.String("action", "status", "run | status | recommend | scheduler | pause | resume")
	horizon := fs.String("horizon", "", "daily | weekly | monthly | quarterly | yearly")
	immediate := fs.Bool("immediate", true, "block until the run completes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := e.MemoryConsolidate(ctx, engine.ConsolidateRequest{
		Action:      engine.ConsolidateAction(*action),
		TimeHorizon: *horizon,
		Immediate:   *immediate,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runIngest(ctx context.Context, e *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	filePath := fs.String("file", "", "file to ingest")
	dirPath := fs.String("dir", "", "directory to ingest")
	recursive := fs.Bool("recursive", false, "walk subdirectories")
	chunkSize := fs.Int("chunk-size", 1000, "chunk size in characters")
	chunkOverlap := fs.Int("chunk-overlap", 100, "chunk overlap in characters")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := e.MemoryIngest(ctx, engine.IngestRequest{
		FilePath:      *filePath,
		DirectoryPath: *dirPath,
		Recursive:     *recursive,
		ChunkSize:     *chunkSize,
		ChunkOverlap:  *chunkOverlap,
		Tags:          splitCSV(*tags),
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
