package sim

import "math"

// scriptRand replays fixed sequences so derived values can be asserted
// exactly. Exhausted sequences return zero.
type scriptRand struct {
	ints   []int
	floats []float64
}

func (r *scriptRand) Intn(_ int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v
}

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
