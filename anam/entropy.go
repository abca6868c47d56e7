package anam

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/anamnesis-pool/anamnesis-analyze/anam/trace"
)

// EntropyResult is the slot-reuse entropy of one merged trace.
type EntropyResult struct {
	H     float64 // Shannon entropy of allocated slots, in bits
	HMax  float64 // log2(numSlots); 0 when numSlots <= 1
	HNorm float64 // H / HMax, or 0 when HMax is 0. Not clamped.

	NumSlots      int
	Allocs        int // ALLOC events considered
	DistinctSlots int // distinct slots among those allocs
	OutOfRange    int // allocs whose slot is >= NumSlots

	// Misconfigured is set when NumSlots <= 0 or fewer slots were configured
	// than were observed; HNorm is then degraded but still finite.
	Misconfigured bool
}

// CapacityExceeded reports whether more distinct slots were allocated than a
// positive NumSlots allows, which leaves HNorm unbounded by 1.
func (r EntropyResult) CapacityExceeded() bool {
	return r.NumSlots > 0 && r.DistinctSlots > r.NumSlots
}

// NormalizedEntropy is shorthand for ReuseEntropy(m, numSlots).HNorm.
func NormalizedEntropy(m *trace.Merged, numSlots int) float64 {
	return ReuseEntropy(m, numSlots).HNorm
}

// ReuseEntropy computes the normalized Shannon entropy of the slot indices
// appearing in ALLOC events. Other ops carry no reuse signal and are skipped.
// Pure: the frequency table lives only for the duration of the call.
func ReuseEntropy(m *trace.Merged, numSlots int) EntropyResult {
	res := EntropyResult{NumSlots: numSlots, Misconfigured: numSlots <= 0}

	freq := make(map[uint32]int)
	for _, ev := range m.All() {
		if ev.Op != trace.OpAlloc {
			continue
		}
		res.Allocs++
		freq[ev.Slot]++
		if numSlots <= 0 || uint64(ev.Slot) >= uint64(numSlots) {
			res.OutOfRange++
		}
	}
	res.DistinctSlots = len(freq)
	if numSlots > 0 && res.DistinctSlots > numSlots {
		res.Misconfigured = true
	}
	if res.Allocs == 0 {
		return res
	}

	// Sum in slot order so the floating-point result does not depend on map order.
	slots := make([]uint32, 0, len(freq))
	for s := range freq {
		slots = append(slots, s)
	}
	slices.Sort(slots)
	p := make([]float64, len(slots))
	total := float64(res.Allocs)
	for i, s := range slots {
		p[i] = float64(freq[s]) / total
	}

	// stat.Entropy uses the natural log and skips zero probabilities.
	res.H = stat.Entropy(p) / math.Ln2
	if res.H <= 0 {
		res.H = 0 // a single symbol yields -0
	}

	if numSlots > 1 {
		res.HMax = math.Log2(float64(numSlots))
		res.HNorm = res.H / res.HMax
	}
	return res
}
