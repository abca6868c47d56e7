package anam

import "math"

// KStar is the hypothesized critical value 1/(2 ln 2) ≈ 0.72135 at which
// slot-reuse entropy is expected to change regime.
const KStar = 1.0 / (2.0 * math.Ln2)

// NearKStarTolerance is the exclusive distance within which H_norm is flagged.
const NearKStarTolerance = 0.05

// Uniformity buckets normalized entropy into a qualitative reading.
type Uniformity string

const (
	NearUniform       Uniformity = "near-uniform"
	ModeratelyUniform Uniformity = "moderately uniform"
	Biased            Uniformity = "biased"
	HighlyBiased      Uniformity = "highly biased"
)

// uniformityThresholds are exclusive lower bounds, checked top-down.
var uniformityThresholds = []struct {
	above  float64
	bucket Uniformity
}{
	{0.9, NearUniform},
	{0.7, ModeratelyUniform},
	{0.4, Biased},
}

// Description is the longer reading printed in reports.
func (u Uniformity) Description() string {
	switch u {
	case NearUniform:
		return "Nearly uniform slot reuse (high contention, random-like)"
	case ModeratelyUniform:
		return "Moderately uniform reuse"
	case Biased:
		return "Biased reuse pattern"
	default:
		return "Highly biased reuse (low contention, LIFO-like)"
	}
}

// Detection is the advisory phase-transition reading for one H_norm.
type Detection struct {
	HNorm     float64
	Bucket    Uniformity
	Distance  float64 // |HNorm - KStar|
	NearKStar bool
}

// Detect classifies hNorm. It is advisory and has no effect on computed values.
func Detect(hNorm float64) Detection {
	d := Detection{HNorm: hNorm, Bucket: HighlyBiased}
	for _, th := range uniformityThresholds {
		if hNorm > th.above {
			d.Bucket = th.bucket
			break
		}
	}
	d.Distance = math.Abs(hNorm - KStar)
	d.NearKStar = d.Distance < NearKStarTolerance
	return d
}
