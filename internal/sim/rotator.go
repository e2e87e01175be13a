package sim

// PortRotator cycles a fixed ordered port list. Rotation mutates order, never
// membership, and wraps with a period equal to the list length.
type PortRotator struct {
	ports []int
}

func NewPortRotator(ports []int) *PortRotator {
	return &PortRotator{ports: append([]int(nil), ports...)}
}

// Rotate shifts the sequence left by one, counts the epoch on the given state
// and returns the new first element.
func (r *PortRotator) Rotate(s *State) int {
	first := r.ports[0]
	copy(r.ports, r.ports[1:])
	r.ports[len(r.ports)-1] = first
	s.PortEpoch++
	return r.ports[0]
}

// Ports returns the current order of the sequence.
func (r *PortRotator) Ports() []int {
	return append([]int(nil), r.ports...)
}
