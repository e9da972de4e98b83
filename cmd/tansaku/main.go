// Package main is the Tansaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/index"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "tansaku server" from the project dir picks up the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "read":
		runRead()
	case "list":
		runList()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, extraction, chunking)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("root", cfg.Index.Root),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Index, components.Extractor, cfg.Index.Root, &cfg.Server, logger)
	// The initial build runs in the background; search answers 200 with
	// whatever is ready, status exposes progress.
	srv.TriggerReindex()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		if cfg.Watch.DebounceMs > 0 {
			watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond))
		}
		watchSvc := watcher.NewWatcher(
			cfg.Index.Root,
			cfg.Index.Extensions,
			cfg.Index.Excludes,
			func() {
				if !srv.TriggerReindex() {
					logger.Debug("reindex already running, change batch folded into next trigger")
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags (and their values) that appear after the
// query to the front of the slice so flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = build and search in-process)`)
	topK := fs.Int("top-k", 10, "number of results (clamped to 1..50)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: tansaku search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, models.SearchRequest{Query: queryStr, TopK: *topK})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct mode: build (or warm-load) the index in-process, then search.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if err := components.Index.Build(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	matches, err := components.Index.Search(ctx, queryStr, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, &models.SearchResponse{Matches: matches}, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req models.SearchRequest) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := postViaHTTP(serverURL+"/api/v1/search", req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func postViaHTTP(url string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runRead() {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	startLine := fs.Int("start", 0, "first line, 1-based inclusive (0 = from start)")
	endLine := fs.Int("end", 0, "last line, 1-based inclusive (0 = to end)")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tansaku read [flags] <path>")
		os.Exit(1)
	}
	var response models.ReadResponse
	req := models.ReadRequest{Path: fs.Arg(0), StartLine: *startLine, EndLine: *endLine}
	if err := postViaHTTP(*serverURL+"/api/v1/read", req, &response); err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(response.Content)
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	recursive := fs.Bool("recursive", false, "recurse into subdirectories")
	maxDepth := fs.Int("max-depth", 0, "recursion depth (0 = immediate children when not recursive, unbounded when recursive)")
	extensions := fs.String("ext", "", "comma-separated extension filter, e.g. .go,.md")
	limit := fs.Int("limit", 0, "maximum entries (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := models.ListRequest{
		Dir:       ".",
		Recursive: *recursive,
		MaxDepth:  *maxDepth,
		Limit:     *limit,
	}
	if fs.NArg() > 0 {
		req.Dir = fs.Arg(0)
	}
	if *extensions != "" {
		for _, e := range strings.Split(*extensions, ",") {
			if e = strings.TrimSpace(e); e != "" {
				req.IncludeExtensions = append(req.IncludeExtensions, e)
			}
		}
	}
	var response models.ListResponse
	if err := postViaHTTP(*serverURL+"/api/v1/list", req, &response); err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEntries(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = build in-process)`)
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		if err := postViaHTTP(*serverURL+"/api/v1/reindex", struct{}{}, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
			os.Exit(1)
		}
		snap, err := pollStatusWithProgress(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d chunk(s) across %d file(s)\n", snap.ChunksTotal, snap.FilesDiscovered)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	done := make(chan error, 1)
	go func() { done <- components.Index.Build(context.Background()) }()
	snap := trackBuildProgress(components.Status, done)
	fmt.Printf("Indexed %d chunk(s) across %d file(s)\n", snap.ChunksTotal, snap.FilesDiscovered)
}

func newIndexBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("embedding"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// pollStatusWithProgress polls the server's status endpoint, rendering a
// progress bar until the index reports ready.
func pollStatusWithProgress(serverURL string) (*index.StatusSnapshot, error) {
	var bar *progressbar.ProgressBar
	for {
		snap, err := statusViaHTTP(serverURL)
		if err != nil {
			return nil, err
		}
		if bar == nil && snap.ChunksTotal > 0 {
			bar = newIndexBar(snap.ChunksTotal)
		}
		if bar != nil {
			_ = bar.Set(snap.ChunksEmbedded)
		}
		if snap.Ready && snap.ChunksEmbedded >= snap.ChunksTotal {
			if bar != nil {
				_ = bar.Finish()
			}
			return snap, nil
		}
		time.Sleep(300 * time.Millisecond)
	}
}

// trackBuildProgress renders a progress bar for an in-process build until the
// build goroutine finishes.
func trackBuildProgress(status *index.Status, done <-chan error) index.StatusSnapshot {
	var bar *progressbar.ProgressBar
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
				os.Exit(1)
			}
			if bar != nil {
				_ = bar.Finish()
			}
			return status.Snapshot()
		case <-ticker.C:
			snap := status.Snapshot()
			if bar == nil && snap.ChunksTotal > 0 {
				bar = newIndexBar(snap.ChunksTotal)
			}
			if bar != nil {
				_ = bar.Set(snap.ChunksEmbedded)
			}
		}
	}
}

func statusViaHTTP(serverURL string) (*index.StatusSnapshot, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var snap index.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &snap, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	snap, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("files_discovered:  %d\n", snap.FilesDiscovered)
		fmt.Printf("chunks_total:      %d\n", snap.ChunksTotal)
		fmt.Printf("chunks_embedded:   %d\n", snap.ChunksEmbedded)
		fmt.Printf("ready:             %t\n", snap.Ready)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Extractor *extract.Extractor
	Status    *index.Status
	Index     *index.Index
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var embedder embedding.Embedder
	if cfg.Embedding.ModelPath != "" {
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("model load failed, using deterministic mock embedder",
				zap.String("model_path", cfg.Embedding.ModelPath), zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = onnxEmbedder
		}
	} else {
		logger.Warn("no model path configured, using deterministic mock embedder")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	cachePath := filepath.Join(filepath.Dir(cfg.Index.StorePath), "extract_cache.json")
	var extractLogger *zap.Logger
	if debug {
		extractLogger = logger
	}
	extractor := extract.NewExtractor(cachePath, extractLogger)

	status := index.NewStatus()
	idxOpts := []index.Option{}
	if debug {
		idxOpts = append(idxOpts, index.WithLogger(logger))
	}
	ix := index.New(&cfg.Index, cfg.Embedding.ModelName, embedder, extractor, status, idxOpts...)

	return &Components{
		Embedder:  embedder,
		Extractor: extractor,
		Status:    status,
		Index:     ix,
	}, nil
}

func printUsage() {
	fmt.Println(`tansaku - Local semantic code and document search

Usage:
  tansaku server [flags]           Start the HTTP server
  tansaku search [flags] <query>   Search indexed content
  tansaku read [flags] <path>      Read a file (optionally a line range)
  tansaku list [flags] [dir]       List directory entries under the root
  tansaku index [flags]            Trigger a (re)index and watch progress
  tansaku status [flags]           Show index progress and readiness
  tansaku version                  Show version
  tansaku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tansaku/config.yaml)
  --debug            Enable debug logging (file events, extraction, chunking)

Search Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to build and search in-process.
  --top-k int        Number of results, clamped to 1..50 (default: 10)
  --output string    Output format: text, compact, or json (default: text)

Read Flags:
  --server string    Server URL (default: http://localhost:8080)
  --start int        First line, 1-based inclusive (0 = from start)
  --end int          Last line, 1-based inclusive (0 = to end)

List Flags:
  --server string    Server URL (default: http://localhost:8080)
  --recursive        Recurse into subdirectories
  --max-depth int    Recursion depth (0 with --recursive = unbounded)
  --ext string       Comma-separated extension filter, e.g. .go,.md
  --limit int        Maximum entries returned
  --output string    Output format: text or json (default: text)

Index Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to build in-process.

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  tansaku server
  tansaku search "cosine similarity helper"
  tansaku search --output json "worker pool"
  tansaku read --start 10 --end 40 internal/index/index.go
  tansaku list --recursive --ext .go internal
  tansaku index
  tansaku status`)
}
