package anam

import "github.com/anamnesis-pool/anamnesis-analyze/anam/trace"

// OpStats is an immutable snapshot of operation counts over a merged trace.
type OpStats struct {
	Total         int
	Unknown       int // records whose op code fell outside the known set
	Gets          int // get_valid + get_stale
	StaleGets     int
	DistinctSlots int           // distinct slot values over all ops
	PerThread     map[uint8]int // thread ID → events recorded

	counts [trace.NumKnownOps]int
}

// ComputeStats derives operation statistics from m. Safe for nil or empty traces.
func ComputeStats(m *trace.Merged) OpStats {
	s := OpStats{PerThread: make(map[uint8]int)}
	slots := make(map[uint32]struct{})
	for _, ev := range m.All() {
		s.Total++
		s.PerThread[ev.ThreadID]++
		slots[ev.Slot] = struct{}{}
		if ev.Op.Known() {
			s.counts[ev.Op]++
		} else {
			s.Unknown++
		}
	}
	s.StaleGets = s.counts[trace.OpGetStale]
	s.Gets = s.counts[trace.OpGetValid] + s.StaleGets
	s.DistinctSlots = len(slots)
	return s
}

// Count returns the number of events of op. Known ops never absent: zero if unseen.
func (s OpStats) Count(op trace.OpType) int {
	if !op.Known() {
		return s.Unknown
	}
	return s.counts[op]
}

func (s OpStats) Allocs() int          { return s.counts[trace.OpAlloc] }
func (s OpStats) Releases() int        { return s.counts[trace.OpRelease] }
func (s OpStats) ValidGets() int       { return s.counts[trace.OpGetValid] }
func (s OpStats) ValidationFails() int { return s.counts[trace.OpValidationFail] }

// HasData reports whether any event was analyzed.
func (s OpStats) HasData() bool { return s.Total > 0 }

// AllocPct is the share of allocations in percent. ok is false when there
// are no events: "no data" is not the same as 0%.
func (s OpStats) AllocPct() (pct float64, ok bool) {
	return percent(s.Allocs(), s.Total)
}

// ReleasePct is the share of releases in percent; ok is false without events.
func (s OpStats) ReleasePct() (pct float64, ok bool) {
	return percent(s.Releases(), s.Total)
}

// StaleRate is the percentage of gets that observed a stale generation;
// ok is false when there were no gets.
func (s OpStats) StaleRate() (pct float64, ok bool) {
	return percent(s.StaleGets, s.Gets)
}

func percent(n, total int) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	return 100.0 * float64(n) / float64(total), true
}
