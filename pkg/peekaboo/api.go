// Package peekaboo exposes the probe simulation as a library: configure a
// client, run the decoy loop, and read back archived runs and event streams.
package peekaboo

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"peekaboo/internal/eventlog"
	"peekaboo/internal/model"
	"peekaboo/internal/sim"
	"peekaboo/internal/stats"
	"peekaboo/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "peekaboo.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest configures a single run. Zero values reproduce the fixed
// constants of the original loop; NoPace computes pacing delays without
// actually waiting them out.
type RunRequest struct {
	RunID            string
	Seed             int64
	Ports            []int
	MaxDepth         int
	MaxFailures      int
	SilenceThreshold float64
	BaseDelay        time.Duration
	Jitter           time.Duration
	NoPace           bool

	// EventWriter receives the NDJSON event stream; defaults to stdout.
	EventWriter io.Writer
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Depth        int
	Sessions     int
	Failures     int
	PortEpoch    int
	FinalBinary  string
	StopReason   string
	Duration     time.Duration
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.store.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	baseDelay := req.BaseDelay
	if baseDelay == 0 {
		baseDelay = sim.DefaultBaseDelay
	}
	jitter := req.Jitter
	if jitter == 0 {
		jitter = sim.DefaultJitter
	}
	writer := req.EventWriter
	if writer == nil {
		writer = os.Stdout
	}

	logger := eventlog.New(writer, &archiveSink{ctx: ctx, store: c.store, runID: runID})

	dc := sim.DriverConfig{
		Config: sim.Config{
			Ports:            req.Ports,
			MaxDepth:         req.MaxDepth,
			MaxFailures:      req.MaxFailures,
			SilenceThreshold: req.SilenceThreshold,
			BaseDelay:        baseDelay,
			Jitter:           jitter,
		},
		Rand:   sim.NewRand(seed),
		Events: logger,
	}
	if req.NoPace {
		dc.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}
	driver, err := sim.NewDriver(dc)
	if err != nil {
		return RunSummary{}, err
	}

	started := time.Now()
	result, err := driver.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	elapsed := time.Since(started)

	record := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:               runID,
		CreatedAtUTC:     started.UTC().Format(time.RFC3339),
		Seed:             seed,
		Ports:            req.Ports,
		MaxDepth:         req.MaxDepth,
		MaxFailures:      req.MaxFailures,
		SilenceThreshold: req.SilenceThreshold,
		Depth:            result.Depth,
		Sessions:         result.Sessions,
		Failures:         result.Failures,
		PortEpoch:        result.PortEpoch,
		Consequence:      result.Consequence,
		ArchiveRatio:     result.ArchiveRatio,
		Entropy:          result.Entropy,
		Scale:            result.Scale,
		FinalBinary:      result.FinalBinary,
		StopReason:       string(result.StopReason),
		DurationMS:       elapsed.Milliseconds(),
	}
	if len(record.Ports) == 0 {
		record.Ports = sim.DefaultPorts()
	}
	if record.MaxDepth == 0 {
		record.MaxDepth = sim.DefaultMaxDepth
	}
	if record.MaxFailures == 0 {
		record.MaxFailures = sim.DefaultMaxFailures
	}
	if record.SilenceThreshold == 0 {
		record.SilenceThreshold = sim.DefaultSilenceThreshold
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}

	events, _, err := c.store.GetEvents(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:    record,
		Events: events,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        record.ID,
		CreatedAtUTC: record.CreatedAtUTC,
		Seed:         record.Seed,
		MaxDepth:     record.MaxDepth,
		Depth:        record.Depth,
		Sessions:     record.Sessions,
		Failures:     record.Failures,
		FinalBinary:  record.FinalBinary,
		StopReason:   record.StopReason,
		DurationMS:   record.DurationMS,
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: runDir,
		Depth:        result.Depth,
		Sessions:     result.Sessions,
		Failures:     result.Failures,
		PortEpoch:    result.PortEpoch,
		FinalBinary:  result.FinalBinary,
		StopReason:   string(result.StopReason),
		Duration:     elapsed,
	}, nil
}

// Runs lists archived run records, newest first.
func (c *Client) Runs(ctx context.Context) ([]model.RunRecord, error) {
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx)
}

// Events returns the archived event stream of a run, falling back to the
// artifacts directory when the store has no copy.
func (c *Client) Events(ctx context.Context, runID string) ([]model.Event, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	events, ok, err := c.store.GetEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return events, nil
	}
	artifacts, ok, err := stats.ReadRunArtifacts(c.artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return artifacts.Events, nil
}

// Index lists the run index entries from the artifacts directory.
func (c *Client) Index() ([]stats.RunIndexEntry, error) {
	return stats.ListRunIndex(c.artifactsDir)
}

// Reset drops all persisted runs and events if the store supports it.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	resetter, ok := c.store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	return resetter.Reset(ctx)
}

// archiveSink fans every emitted event into the run archive.
type archiveSink struct {
	ctx   context.Context
	store storage.Store
	runID string
}

func (s *archiveSink) Record(event model.Event) error {
	return s.store.AppendEvent(s.ctx, s.runID, event)
}
