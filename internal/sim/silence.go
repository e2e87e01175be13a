package sim

// IsSilent reports whether the unheard fraction has crossed the silence
// threshold, which stops the loop regardless of depth.
func IsSilent(s *State, cfg Config) bool {
	return s.Unheard() >= cfg.SilenceThreshold
}

// FinalBinary derives the 4-bit terminal status code, in fixed bit order:
// consequence above half, entropy above 0.4, depth parity (even depth reads
// as 0), archive ratio below 0.3.
func FinalBinary(s *State) string {
	bits := [...]bool{
		s.Consequence > 0.5,
		s.Entropy > 0.4,
		s.Depth%2 == 1,
		s.ArchiveRatio < 0.3,
	}
	out := make([]byte, len(bits))
	for i, set := range bits {
		if set {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}
