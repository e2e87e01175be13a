package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"peekaboo/internal/storage"
	pbapi "peekaboo/pkg/peekaboo"
)

const artifactsDir = "runs"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		// Bare invocation performs one default run: boot, loop, shutdown.
		return runRun(ctx, nil)
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "events":
		return runEvents(ctx, args[1:])
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: peekabooctl [run|runs|events|init|reset] [flags]", msg)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	runID := fs.String("run-id", "", "explicit run id (optional)")
	seed := fs.Int64("seed", 0, "rng seed (0 derives one from the clock)")
	ports := fs.String("ports", "", "comma-separated port rotation (default 31337,8080,2222,443,5000)")
	maxDepth := fs.Int("max-depth", 0, "iteration ceiling (default 64)")
	maxFailures := fs.Int("max-failures", 0, "recovered-failure ceiling (default 256)")
	silence := fs.Float64("silence-threshold", 0, "unheard-fraction stop threshold (default 0.88)")
	baseDelayMS := fs.Int("base-delay-ms", 0, "pacing base delay in ms (default 100)")
	jitterMS := fs.Int("jitter-ms", 0, "pacing jitter span in ms (default 300)")
	noPace := fs.Bool("no-pace", false, "compute pacing delays without waiting them out")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "peekaboo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	portList, err := parsePorts(*ports)
	if err != nil {
		return err
	}

	client, err := pbapi.New(pbapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, pbapi.RunRequest{
		RunID:            *runID,
		Seed:             *seed,
		Ports:            portList,
		MaxDepth:         *maxDepth,
		MaxFailures:      *maxFailures,
		SilenceThreshold: *silence,
		BaseDelay:        time.Duration(*baseDelayMS) * time.Millisecond,
		Jitter:           time.Duration(*jitterMS) * time.Millisecond,
		NoPace:           *noPace,
		EventWriter:      os.Stdout,
	})
	if err != nil {
		return err
	}

	printRunSummary(summary)
	return nil
}

// The NDJSON event stream owns stdout, so the closing summary goes to stderr:
// spelled out when a human is watching, one key=value line otherwise.
func printRunSummary(summary pbapi.RunSummary) {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "run %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
		fmt.Fprintf(os.Stderr, "  stop_reason=%s depth=%d sessions=%d failures=%d\n",
			summary.StopReason, summary.Depth, summary.Sessions, summary.Failures)
		fmt.Fprintf(os.Stderr, "  final_binary=%s artifacts=%s\n", summary.FinalBinary, summary.ArtifactsDir)
		return
	}
	fmt.Fprintf(os.Stderr, "run_id=%s stop_reason=%s depth=%d sessions=%d failures=%d final_binary=%s duration_ms=%d artifacts=%s\n",
		summary.RunID,
		summary.StopReason,
		summary.Depth,
		summary.Sessions,
		summary.Failures,
		summary.FinalBinary,
		summary.Duration.Milliseconds(),
		summary.ArtifactsDir,
	)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := pbapi.New(pbapi.Options{ArtifactsDir: artifactsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Index()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		age := e.CreatedAtUTC
		if created, err := time.Parse(time.RFC3339, e.CreatedAtUTC); err == nil {
			age = humanize.Time(created)
		}
		fmt.Printf("run_id=%s created=%s seed=%d depth=%d/%d sessions=%d failures=%d final_binary=%s stop_reason=%s took=%dms\n",
			e.RunID,
			age,
			e.Seed,
			e.Depth,
			e.MaxDepth,
			e.Sessions,
			e.Failures,
			e.FinalBinary,
			e.StopReason,
			e.DurationMS,
		)
	}
	return nil
}

func runEvents(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show events for the most recent run from the run index")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "peekaboo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("events requires --run-id or --latest")
	}

	client, err := pbapi.New(pbapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	id := *runID
	if *latest {
		entries, err := client.Index()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs found")
		}
		id = entries[0].RunID
	}

	events, err := client.Events(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
	return nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "peekaboo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "peekaboo.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := pbapi.New(pbapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}
