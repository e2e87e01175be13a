package sim

import "time"

// Defaults reproduce the fixed constants of the original decoy loop.
const (
	DefaultMaxDepth         = 64
	DefaultMaxFailures      = 256
	DefaultSilenceThreshold = 0.88
	DefaultBaseDelay        = 100 * time.Millisecond
	DefaultJitter           = 300 * time.Millisecond
	MaxScale                = 2.0
)

func DefaultPorts() []int {
	return []int{31337, 8080, 2222, 443, 5000}
}

// Config owns the per-run tunables. Scale is the one field the run itself
// mutates: recomputed from consequence on every state update and bumped
// further on each recovered failure, capped at MaxScale.
type Config struct {
	Ports            []int
	MaxDepth         int
	MaxFailures      int
	SilenceThreshold float64
	BaseDelay        time.Duration
	Jitter           time.Duration

	Scale float64
}

func normalizeConfig(cfg Config) Config {
	if len(cfg.Ports) == 0 {
		cfg.Ports = DefaultPorts()
	} else {
		cfg.Ports = append([]int(nil), cfg.Ports...)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = DefaultSilenceThreshold
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Scale < 1 {
		cfg.Scale = 1
	}
	return cfg
}
