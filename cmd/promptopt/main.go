package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/promptlabs/promptopt/config"
	"github.com/promptlabs/promptopt/history"
	promptlogger "github.com/promptlabs/promptopt/logger"
	"github.com/promptlabs/promptopt/llm/registry"
	"github.com/promptlabs/promptopt/migrations"
	"github.com/promptlabs/promptopt/optimize"
	"github.com/promptlabs/promptopt/templates"
)

const usageText = `Usage: promptopt [flags] <command> [command flags]

Commands:
  optimize   Optimize a prompt with a strategy template
  test       Compare an original and an optimized prompt on the same input
  models     List models available on the local Ollama daemon
  history    Show recent optimization and comparison runs

Global flags:
  -config string    Path to config file (default: ~/.promptopt/config.yaml)
  -logfile string   Path to log file. If not set, logs to stdout/stderr
  -pretty           Use pretty console output (only valid when -logfile is not set)
  -db string        Path to SQLite history database (overrides config)

Run "promptopt <command> -h" for command flags.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to config file")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		dbPath     = flag.String("db", "", "Path to SQLite history database (overrides config)")
	)
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usageText) }
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := promptlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	appConfig, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *dbPath != "" {
		appConfig.Database = *dbPath
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "optimize":
		return runOptimize(ctx, logger, appConfig, args[1:])
	case "test":
		return runTest(ctx, logger, appConfig, args[1:])
	case "models":
		return runModels(ctx, appConfig)
	case "history":
		return runHistory(ctx, logger, appConfig, args[1:])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// openHistoryStore opens the history database, applying migrations.
func openHistoryStore(appConfig *config.AppConfig, logger zerolog.Logger) (*history.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(appConfig.Database), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", appConfig.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrations.Run(db, logger); err != nil {
		_ = db.Close() //nolint:errcheck // Cleanup on error
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := history.NewStore(db, logger)
	closeFn := func() { _ = db.Close() } //nolint:errcheck // No remedy for db close errors
	return store, closeFn, nil
}

// resolveTarget picks the provider and model for a command, falling back
// to the configured defaults.
func resolveTarget(appConfig *config.AppConfig, provider, model string) (string, string) {
	if provider == "" {
		provider = appConfig.DefaultProvider
	}
	if model == "" {
		model = appConfig.ModelFor(provider)
	}
	return provider, model
}

func runOptimize(ctx context.Context, logger zerolog.Logger, appConfig *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	var (
		prompt   = fs.String("prompt", "", "Prompt to optimize (or pass as positional argument)")
		strategy = fs.String("strategy", templates.StrategyGeneral,
			fmt.Sprintf("Optimization strategy (%s)", strings.Join(templates.StrategyKeys(), ", ")))
		provider = fs.String("provider", "", "Provider to use (default: from config)")
		model    = fs.String("model", "", "Model to use (default: provider default from config)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := *prompt
	if target == "" {
		target = strings.Join(fs.Args(), " ")
	}

	store, closeStore, err := openHistoryStore(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	prov, mdl := resolveTarget(appConfig, *provider, *model)
	reg := registry.New(appConfig.ProviderConfig(), logger)
	service := optimize.NewService(reg, store, logger)

	result, err := service.Optimize(ctx, optimize.Request{
		Prompt:   target,
		Strategy: *strategy,
		Provider: prov,
		Model:    mdl,
		Config:   appConfig.GenerationConfig(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Task:     %s\n", result.TaskID)
	fmt.Printf("Strategy: %s\n", result.Strategy)
	fmt.Printf("Model:    %s/%s\n", result.Provider, result.Model)
	fmt.Printf("Duration: %s\n\n", result.Duration.Round(10*time.Millisecond))
	fmt.Println("Optimized prompt:")
	fmt.Println(result.OptimizedPrompt)
	fmt.Println("\nSuggestions:")
	for _, suggestion := range result.Suggestions {
		fmt.Printf("  - %s\n", suggestion)
	}
	return nil
}

func runTest(ctx context.Context, logger zerolog.Logger, appConfig *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var (
		original  = fs.String("original", "", "Original prompt")
		optimized = fs.String("optimized", "", "Optimized prompt")
		input     = fs.String("input", "", "Test input to run both prompts against")
		provider  = fs.String("provider", "", "Provider to use (default: from config)")
		model     = fs.String("model", "", "Model to use (default: provider default from config)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openHistoryStore(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	prov, mdl := resolveTarget(appConfig, *provider, *model)
	reg := registry.New(appConfig.ProviderConfig(), logger)
	comparer := optimize.NewComparer(reg, store, logger)

	result, err := comparer.Compare(ctx, optimize.CompareRequest{
		OriginalPrompt:  *original,
		OptimizedPrompt: *optimized,
		TestInput:       *input,
		Provider:        prov,
		Model:           mdl,
		Config:          appConfig.GenerationConfig(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Task:  %s\n", result.TaskID)
	fmt.Printf("Model: %s/%s\n\n", result.Provider, result.Model)
	fmt.Println("--- Original response ---")
	fmt.Println(result.OriginalOutput)
	fmt.Println("\n--- Optimized response ---")
	fmt.Println(result.OptimizedOutput)
	fmt.Println("\n--- Analysis ---")
	fmt.Println(result.Analysis)
	fmt.Println("\n--- Metrics ---")
	fmt.Printf("Latency:  %s -> %s (%+.0fms)\n",
		result.Metrics.OriginalLatency.Round(10*time.Millisecond),
		result.Metrics.OptimizedLatency.Round(10*time.Millisecond),
		float64(result.Metrics.LatencyDelta.Milliseconds()))
	fmt.Printf("Tokens:   %d -> %d\n", result.Metrics.OriginalTokens, result.Metrics.OptimizedTokens)
	fmt.Printf("Length:   %d -> %d chars\n", result.Metrics.OriginalLength, result.Metrics.OptimizedLength)
	return nil
}

func runModels(ctx context.Context, appConfig *config.AppConfig) error {
	adapter, err := config.NewOllamaAdapter(appConfig)
	if err != nil {
		return err
	}

	models, err := adapter.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("No models found on the Ollama daemon")
		return nil
	}

	for _, m := range models {
		fmt.Printf("%-40s %10.1f GB\n", m.Name, float64(m.Size)/1e9)
	}
	return nil
}

func runHistory(ctx context.Context, logger zerolog.Logger, appConfig *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var (
		limit       = fs.Int("limit", 10, "Number of runs to show")
		comparisons = fs.Bool("comparisons", false, "Show comparison runs instead of optimization runs")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := openHistoryStore(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if *comparisons {
		records, err := store.RecentComparisons(ctx, *limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %s  %s/%s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Provider, r.Model)
			fmt.Printf("    original:  %s\n", truncate(r.OriginalPrompt, 70))
			fmt.Printf("    optimized: %s\n", truncate(r.OptimizedPrompt, 70))
		}
		return nil
	}

	records, err := store.RecentOptimizations(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s  %s  %s/%s  [%s]\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Provider, r.Model, r.Strategy)
		fmt.Printf("    %s\n", truncate(r.OriginalPrompt, 80))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
