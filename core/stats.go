package core

// Stats counts what happened during a run.
type Stats struct {
	Cycles   uint64
	Retired  uint64
	BPHits   uint64
	BPMisses uint64
	Stalls   uint64
	Forwards uint64
	Squashed uint64
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Retired == 0 {
		return 0
	}

	return float64(s.Cycles) / float64(s.Retired)
}

// Accuracy returns the fraction of branches predicted correctly.
func (s Stats) Accuracy() float64 {
	total := s.BPHits + s.BPMisses
	if total == 0 {
		return 0
	}

	return float64(s.BPHits) / float64(total)
}
