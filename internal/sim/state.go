package sim

import "math"

// State holds the mutable simulation variables for a single run. It is owned
// by the driver and lives for exactly one run.
type State struct {
	Depth        int
	Consequence  float64
	ArchiveRatio float64
	Entropy      float64
	PortEpoch    int
	Sessions     int
	Failures     int
	BinaryFinal  string
}

// NewState starts a run at half confidence and half acknowledgement, so the
// silence predicate cannot fire before any probe has been sent.
func NewState() *State {
	return &State{
		Consequence:  0.5,
		ArchiveRatio: 0.5,
	}
}

// Update applies a probe's deltas, clamps the bounded metrics to [0,1],
// smooths entropy toward the mismatch between consequence and the unheard
// fraction, and recomputes the pacing scale from consequence.
func (s *State) Update(cfg *Config, delta, heardDelta float64) {
	s.Consequence = clamp01(s.Consequence + delta)
	s.ArchiveRatio = clamp01(s.ArchiveRatio + heardDelta)
	mismatch := math.Abs(s.Consequence - (1 - s.ArchiveRatio))
	s.Entropy = clamp01(0.9*s.Entropy + 0.1*mismatch)
	cfg.Scale = 1 + s.Consequence*0.75
}

// Penalize records a recovered cycle failure: the run gets noisier and slower.
func (s *State) Penalize(cfg *Config) {
	s.Failures++
	s.Entropy = clamp01(s.Entropy + 0.07)
	cfg.Scale = math.Min(cfg.Scale+0.1, MaxScale)
}

// Unheard is the unacknowledged fraction driving the silence predicate.
func (s *State) Unheard() float64 {
	return 1 - s.ArchiveRatio
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
