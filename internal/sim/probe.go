package sim

import "math"

const probeBanner = "peek-a-boo"

var (
	probeVectors  = []string{"ego", "memory", "static", "mirror", "chaos"}
	probeCadences = []string{"blink", "pause", "flicker"}
)

// Probe is one synthetic probe record plus the state deltas it implies.
type Probe struct {
	Banner    string
	Port      int
	Depth     int
	Vector    string
	Amplitude float64
	Cadence   string

	Delta      float64
	HeardDelta float64
}

// GenerateProbe draws a uniform vector, amplitude (rounded to 3 decimals) and
// cadence. An ego draw pushes consequence up and archive ratio down in
// proportion to amplitude, a memory draw does the opposite, and the remaining
// vectors are inert.
func GenerateProbe(rng Rand, port, depth int) Probe {
	vector := probeVectors[rng.Intn(len(probeVectors))]
	amplitude := math.Round(rng.Float64()*1000) / 1000
	cadence := probeCadences[rng.Intn(len(probeCadences))]

	var direction float64
	switch vector {
	case "ego":
		direction = 1
	case "memory":
		direction = -1
	}
	delta := direction * (0.04 + amplitude*0.1)

	return Probe{
		Banner:     probeBanner,
		Port:       port,
		Depth:      depth,
		Vector:     vector,
		Amplitude:  amplitude,
		Cadence:    cadence,
		Delta:      delta,
		HeardDelta: -delta * 0.5,
	}
}
