package sim

import "testing"

func TestEgoProbePushesConsequenceUp(t *testing.T) {
	rng := &scriptRand{ints: []int{0, 1}, floats: []float64{0.5}}
	probe := GenerateProbe(rng, 8080, 3)

	if probe.Vector != "ego" {
		t.Fatalf("unexpected vector: %s", probe.Vector)
	}
	if probe.Cadence != "pause" {
		t.Fatalf("unexpected cadence: %s", probe.Cadence)
	}
	if probe.Port != 8080 || probe.Depth != 3 {
		t.Fatalf("probe record mismatch: port=%d depth=%d", probe.Port, probe.Depth)
	}
	if probe.Banner != "peek-a-boo" {
		t.Fatalf("unexpected banner: %s", probe.Banner)
	}
	if !almostEqual(probe.Delta, 0.09) {
		t.Fatalf("unexpected delta: %f", probe.Delta)
	}
	if !almostEqual(probe.HeardDelta, -0.045) {
		t.Fatalf("unexpected heard delta: %f", probe.HeardDelta)
	}
}

func TestMemoryProbePushesConsequenceDown(t *testing.T) {
	rng := &scriptRand{ints: []int{1, 0}, floats: []float64{0.5}}
	probe := GenerateProbe(rng, 443, 0)

	if probe.Vector != "memory" {
		t.Fatalf("unexpected vector: %s", probe.Vector)
	}
	if !almostEqual(probe.Delta, -0.09) {
		t.Fatalf("unexpected delta: %f", probe.Delta)
	}
	if !almostEqual(probe.HeardDelta, 0.045) {
		t.Fatalf("unexpected heard delta: %f", probe.HeardDelta)
	}
}

func TestInertVectorsProduceZeroDeltas(t *testing.T) {
	for _, idx := range []int{2, 3, 4} {
		rng := &scriptRand{ints: []int{idx, 2}, floats: []float64{0.9}}
		probe := GenerateProbe(rng, 2222, 7)
		if probe.Delta != 0 || probe.HeardDelta != 0 {
			t.Fatalf("vector %s produced non-zero deltas: %f %f", probe.Vector, probe.Delta, probe.HeardDelta)
		}
	}
}

func TestAmplitudeRoundsToThreeDecimals(t *testing.T) {
	rng := &scriptRand{ints: []int{2, 0}, floats: []float64{0.123456}}
	probe := GenerateProbe(rng, 5000, 1)
	if probe.Amplitude != 0.123 {
		t.Fatalf("unexpected amplitude: %f", probe.Amplitude)
	}
}
