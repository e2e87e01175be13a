package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"peekaboo/internal/model"
)

type captureSink struct {
	events []model.Event
}

func (s *captureSink) Emit(kind string, payload map[string]any) (model.Event, error) {
	event := model.Event{Kind: kind, Payload: payload}
	s.events = append(s.events, event)
	return event, nil
}

func (s *captureSink) count(kind string) int {
	n := 0
	for _, event := range s.events {
		if event.Kind == kind {
			n++
		}
	}
	return n
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func inertProbe(_ Rand, port, depth int) (Probe, error) {
	return Probe{Banner: "peek-a-boo", Port: port, Depth: depth, Vector: "static", Cadence: "blink"}, nil
}

func newTestDriver(t *testing.T, cfg Config, sink *captureSink, probe Prober) *Driver {
	t.Helper()
	driver, err := NewDriver(DriverConfig{
		Config: cfg,
		Rand:   &scriptRand{},
		Events: sink,
		Probe:  probe,
		Sleep:  noSleep,
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	return driver
}

func TestRunTerminatesAtDepthCeiling(t *testing.T) {
	sink := &captureSink{}
	driver := newTestDriver(t, Config{}, sink, inertProbe)

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.StopReason != StopReasonDepth {
		t.Fatalf("unexpected stop reason: %s", result.StopReason)
	}
	if result.Depth != DefaultMaxDepth || result.Sessions != DefaultMaxDepth {
		t.Fatalf("unexpected depth/sessions: %d/%d", result.Depth, result.Sessions)
	}
	if result.Failures != 0 {
		t.Fatalf("unexpected failures: %d", result.Failures)
	}
	if result.PortEpoch != DefaultMaxDepth {
		t.Fatalf("unexpected port epoch: %d", result.PortEpoch)
	}
	// Inert probes leave the state at its initial values: all bits off.
	if result.FinalBinary != "0000" {
		t.Fatalf("unexpected final binary: %s", result.FinalBinary)
	}
	if driver.Phase() != PhaseTerminated {
		t.Fatalf("driver not terminated: %s", driver.Phase())
	}
	if driver.State().BinaryFinal != result.FinalBinary {
		t.Fatalf("state binary %s differs from result %s", driver.State().BinaryFinal, result.FinalBinary)
	}
	if driver.State().Depth != result.Depth {
		t.Fatalf("state depth %d differs from result %d", driver.State().Depth, result.Depth)
	}
	if driver.Scale() != result.Scale {
		t.Fatalf("driver scale %f differs from result %f", driver.Scale(), result.Scale)
	}

	if sink.events[0].Kind != "boot" {
		t.Fatalf("first event is %s, want boot", sink.events[0].Kind)
	}
	if got := sink.count("probe"); got != DefaultMaxDepth {
		t.Fatalf("expected %d probe events, got %d", DefaultMaxDepth, got)
	}
	if got := sink.count("sleep"); got != DefaultMaxDepth {
		t.Fatalf("expected %d sleep events, got %d", DefaultMaxDepth, got)
	}
	last := sink.events[len(sink.events)-1]
	if last.Kind != "shutdown" {
		t.Fatalf("last event is %s, want shutdown", last.Kind)
	}
	if sink.events[len(sink.events)-2].Kind != "final_binary" {
		t.Fatalf("penultimate event is %s, want final_binary", sink.events[len(sink.events)-2].Kind)
	}
}

func TestSilenceStopsRegardlessOfDepth(t *testing.T) {
	sink := &captureSink{}
	driver := newTestDriver(t, Config{}, sink, func(_ Rand, port, depth int) (Probe, error) {
		return Probe{Port: port, Depth: depth, Vector: "static", HeardDelta: -10}, nil
	})

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonSilence {
		t.Fatalf("unexpected stop reason: %s", result.StopReason)
	}
	if result.Depth != 1 || result.Sessions != 1 {
		t.Fatalf("unexpected depth/sessions: %d/%d", result.Depth, result.Sessions)
	}
	if result.ArchiveRatio != 0 {
		t.Fatalf("unexpected archive ratio: %f", result.ArchiveRatio)
	}
}

func TestFailingCycleIsRecovered(t *testing.T) {
	sink := &captureSink{}
	calls := 0
	driver := newTestDriver(t, Config{}, sink, func(rng Rand, port, depth int) (Probe, error) {
		calls++
		if calls == 1 {
			return Probe{}, errors.New("decoy jam")
		}
		return inertProbe(rng, port, depth)
	})

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.StopReason != StopReasonDepth {
		t.Fatalf("unexpected stop reason: %s", result.StopReason)
	}
	if result.Failures != 1 {
		t.Fatalf("expected 1 failure, got %d", result.Failures)
	}
	if result.Depth != DefaultMaxDepth || result.Sessions != DefaultMaxDepth {
		t.Fatalf("failed cycle advanced depth/sessions: %d/%d", result.Depth, result.Sessions)
	}
	if got := sink.count("failure"); got != 1 {
		t.Fatalf("expected 1 failure event, got %d", got)
	}
	if got := sink.count("retry"); got != 1 {
		t.Fatalf("expected 1 retry event, got %d", got)
	}

	for _, event := range sink.events {
		if event.Kind != "failure" {
			continue
		}
		if event.Payload["error"] != "decoy jam" {
			t.Fatalf("unexpected failure error: %v", event.Payload["error"])
		}
		if event.Payload["failures"] != 1 {
			t.Fatalf("unexpected failure count: %v", event.Payload["failures"])
		}
		entropy, ok := event.Payload["entropy"].(float64)
		if !ok || !almostEqual(entropy, 0.07) {
			t.Fatalf("unexpected failure entropy: %v", event.Payload["entropy"])
		}
		scale, ok := event.Payload["scale"].(float64)
		if !ok || !almostEqual(scale, 1.1) {
			t.Fatalf("unexpected failure scale: %v", event.Payload["scale"])
		}
	}
}

func TestPersistentFailuresHitRetryCeiling(t *testing.T) {
	sink := &captureSink{}
	driver := newTestDriver(t, Config{MaxFailures: 5}, sink, func(_ Rand, _, _ int) (Probe, error) {
		return Probe{}, errors.New("decoy jam")
	})

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.StopReason != StopReasonFailures {
		t.Fatalf("unexpected stop reason: %s", result.StopReason)
	}
	if result.Failures != 5 {
		t.Fatalf("expected 5 failures, got %d", result.Failures)
	}
	if result.Depth != 0 || result.Sessions != 0 {
		t.Fatalf("failed cycles advanced depth/sessions: %d/%d", result.Depth, result.Sessions)
	}
	if got := sink.count("final_binary"); got != 1 {
		t.Fatalf("expected exactly one final_binary event, got %d", got)
	}
}

func TestRunIsSingleUse(t *testing.T) {
	sink := &captureSink{}
	driver := newTestDriver(t, Config{MaxDepth: 1}, sink, inertProbe)

	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := driver.Run(context.Background()); err == nil {
		t.Fatal("expected error on second run")
	}
	if got := sink.count("final_binary"); got != 1 {
		t.Fatalf("final binary written %d times", got)
	}
}

func TestCanceledContextReachesShutdown(t *testing.T) {
	sink := &captureSink{}
	driver := newTestDriver(t, Config{}, sink, inertProbe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopReasonCanceled {
		t.Fatalf("unexpected stop reason: %s", result.StopReason)
	}
	if got := sink.count("shutdown"); got != 1 {
		t.Fatalf("expected shutdown event, got %d", got)
	}
}
