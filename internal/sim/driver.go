package sim

import (
	"context"
	"fmt"
	"time"

	"peekaboo/internal/model"
)

// Phase is the driver's lifecycle state. A driver starts running and reaches
// terminated exactly once; the transition is irreversible.
type Phase string

const (
	PhaseRunning    Phase = "running"
	PhaseTerminated Phase = "terminated"
)

// StopReason reports why a run reached the terminated phase.
type StopReason string

const (
	StopReasonDepth    StopReason = "depth"
	StopReasonSilence  StopReason = "silence"
	StopReasonFailures StopReason = "failures"
	StopReasonCanceled StopReason = "canceled"
)

// EventSink receives the run's structured events in emission order.
type EventSink interface {
	Emit(kind string, payload map[string]any) (model.Event, error)
}

// Prober produces the next probe record. The default draws from the run's
// random source; tests substitute scripted or failing implementations.
type Prober func(rng Rand, port, depth int) (Probe, error)

type DriverConfig struct {
	Config Config
	Rand   Rand
	Events EventSink
	Probe  Prober
	Sleep  func(ctx context.Context, d time.Duration) error
}

// Driver orchestrates the bounded probe loop: check stop conditions, rotate
// the port, generate and log a probe, apply its deltas, pace, repeat. Any
// fault raised during a running cycle is recovered locally and never
// surfaces to the caller.
type Driver struct {
	cfg     Config
	rng     Rand
	events  EventSink
	probe   Prober
	pacer   *Pacer
	rotator *PortRotator
	state   *State
	phase   Phase
}

func NewDriver(dc DriverConfig) (*Driver, error) {
	if dc.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if dc.Events == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	cfg := normalizeConfig(dc.Config)
	probe := dc.Probe
	if probe == nil {
		probe = func(rng Rand, port, depth int) (Probe, error) {
			return GenerateProbe(rng, port, depth), nil
		}
	}
	pacer := NewPacer(dc.Rand)
	if dc.Sleep != nil {
		pacer.sleep = dc.Sleep
	}
	return &Driver{
		cfg:     cfg,
		rng:     dc.Rand,
		events:  dc.Events,
		probe:   probe,
		pacer:   pacer,
		rotator: NewPortRotator(cfg.Ports),
		state:   NewState(),
		phase:   PhaseRunning,
	}, nil
}

// Result is the terminal snapshot of a completed run.
type Result struct {
	Depth        int
	Sessions     int
	Failures     int
	PortEpoch    int
	Consequence  float64
	ArchiveRatio float64
	Entropy      float64
	Scale        float64
	FinalBinary  string
	StopReason   StopReason
}

// Run drives the loop to natural termination and emits the terminal events.
// It can be called once per driver.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if d.phase != PhaseRunning {
		return Result{}, fmt.Errorf("run already terminated")
	}

	if _, err := d.events.Emit("boot", map[string]any{
		"message":   probeBanner + " decoy loop engaged",
		"max_depth": d.cfg.MaxDepth,
		"ports":     d.rotator.Ports(),
	}); err != nil {
		return Result{}, err
	}

	reason := d.loop(ctx)

	d.phase = PhaseTerminated
	d.state.BinaryFinal = FinalBinary(d.state)
	if _, err := d.events.Emit("final_binary", map[string]any{
		"binary": d.state.BinaryFinal,
	}); err != nil {
		return Result{}, err
	}
	if _, err := d.events.Emit("shutdown", map[string]any{
		"sessions":     d.state.Sessions,
		"failures":     d.state.Failures,
		"final_binary": d.state.BinaryFinal,
	}); err != nil {
		return Result{}, err
	}

	return Result{
		Depth:        d.state.Depth,
		Sessions:     d.state.Sessions,
		Failures:     d.state.Failures,
		PortEpoch:    d.state.PortEpoch,
		Consequence:  d.state.Consequence,
		ArchiveRatio: d.state.ArchiveRatio,
		Entropy:      d.state.Entropy,
		Scale:        d.cfg.Scale,
		FinalBinary:  d.state.BinaryFinal,
		StopReason:   reason,
	}, nil
}

func (d *Driver) loop(ctx context.Context) StopReason {
	for {
		if d.state.Depth >= d.cfg.MaxDepth {
			return StopReasonDepth
		}
		if IsSilent(d.state, d.cfg) {
			return StopReasonSilence
		}
		if ctx.Err() != nil {
			return StopReasonCanceled
		}
		if err := d.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return StopReasonCanceled
			}
			d.recover(ctx, err)
			if d.state.Failures >= d.cfg.MaxFailures {
				return StopReasonFailures
			}
		}
	}
}

// cycle runs one full running-phase iteration. Depth and sessions advance
// only when every step of the cycle succeeds.
func (d *Driver) cycle(ctx context.Context) error {
	port := d.rotator.Rotate(d.state)
	probe, err := d.probe(d.rng, port, d.state.Depth)
	if err != nil {
		return err
	}
	if _, err := d.events.Emit("probe", map[string]any{
		"port":      probe.Port,
		"vector":    probe.Vector,
		"amplitude": probe.Amplitude,
		"cadence":   probe.Cadence,
		"depth":     probe.Depth,
	}); err != nil {
		return err
	}
	d.state.Update(&d.cfg, probe.Delta, probe.HeardDelta)
	ms, err := d.pacer.Pace(ctx, &d.cfg, d.state)
	if err != nil {
		return err
	}
	if _, err := d.events.Emit("sleep", map[string]any{
		"ms":    ms,
		"depth": d.state.Depth,
		"scale": d.cfg.Scale,
	}); err != nil {
		return err
	}
	d.state.Depth++
	d.state.Sessions++
	return nil
}

// recover applies the transient-failure penalty and paces once more before
// the loop re-enters. Failed cycles do not advance depth or sessions.
func (d *Driver) recover(ctx context.Context, cause error) {
	d.state.Penalize(&d.cfg)
	_, _ = d.events.Emit("failure", map[string]any{
		"error":    cause.Error(),
		"failures": d.state.Failures,
		"entropy":  d.state.Entropy,
		"scale":    d.cfg.Scale,
	})
	ms, err := d.pacer.Pace(ctx, &d.cfg, d.state)
	if err != nil {
		return
	}
	_, _ = d.events.Emit("retry", map[string]any{
		"ms":    ms,
		"depth": d.state.Depth,
	})
}

// Phase reports whether the driver is still running or has terminated.
func (d *Driver) Phase() Phase {
	return d.phase
}

// State exposes the run's state for inspection after termination.
func (d *Driver) State() *State {
	return d.state
}

// Scale reports the current pacing scale factor.
func (d *Driver) Scale() float64 {
	return d.cfg.Scale
}
