package anam

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	headingColor = color.New(color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	anomalyColor = color.New(color.FgRed)

	// grouped thousands, e.g. 1,048,576
	numbers = message.NewPrinter(language.English)
)

const rule = "======================================================================"

// WriteReport renders the human-readable summary of one run. It tolerates
// runs without data and never prints a percentage that is undefined.
func WriteReport(w io.Writer, r *Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", rule)
	headingColor.Fprintf(&b, "TRACE ANALYSIS: %s", r.Dir)
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "Run %s, %d trace files, digest %s\n", r.RunID, len(r.Files), r.Digest)

	if len(r.Anomalies) > 0 {
		fmt.Fprintf(&b, "\nAnomalies:\n")
		for _, a := range r.Anomalies {
			anomalyColor.Fprintf(&b, "  ! %s", a)
			b.WriteString("\n")
		}
	}

	if !r.HasData() {
		switch r.Status {
		case StatusNoFiles:
			fmt.Fprintf(&b, "\nNo trace files found: no data to analyze.\n")
		default:
			if n := r.ReadFailures(); n > 0 {
				fmt.Fprintf(&b, "\nTrace files contained no complete records (%d could not be read): no data to analyze.\n", n)
			} else {
				fmt.Fprintf(&b, "\nTrace files contained no complete records: no data to analyze.\n")
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	s := r.Stats
	fmt.Fprintf(&b, "\nOperation Statistics:\n")
	fmt.Fprintf(&b, "  Total operations: %s\n", numbers.Sprintf("%d", s.Total))
	fmt.Fprintf(&b, "  Allocations:      %s%s\n", numbers.Sprintf("%d", s.Allocs()), pctSuffix(s.AllocPct, "%.1f"))
	fmt.Fprintf(&b, "  Releases:         %s%s\n", numbers.Sprintf("%d", s.Releases()), pctSuffix(s.ReleasePct, "%.1f"))
	fmt.Fprintf(&b, "  Gets:             %s\n", numbers.Sprintf("%d", s.Gets))
	fmt.Fprintf(&b, "    ├─ Valid:       %s\n", numbers.Sprintf("%d", s.ValidGets()))
	fmt.Fprintf(&b, "    └─ Stale:       %s%s\n", numbers.Sprintf("%d", s.StaleGets), pctSuffix(s.StaleRate, "%.2f"))
	fmt.Fprintf(&b, "  Validation fails: %s\n", numbers.Sprintf("%d", s.ValidationFails()))
	if s.Unknown > 0 {
		fmt.Fprintf(&b, "  Unknown ops:      %s\n", numbers.Sprintf("%d", s.Unknown))
	}
	fmt.Fprintf(&b, "  Threads:          %d\n", len(s.PerThread))

	e := r.Entropy
	fmt.Fprintf(&b, "\nSlot Reuse Entropy:\n")
	fmt.Fprintf(&b, "  Normalized entropy: H_norm = %.4f\n", e.HNorm)
	fmt.Fprintf(&b, "  Raw entropy:        H      = %.4f bits over %d distinct slots\n", e.H, e.DistinctSlots)
	fmt.Fprintf(&b, "  Max possible:       H_max  = log2(%d) = %s\n", e.NumSlots, formatHMax(e))
	switch {
	case e.CapacityExceeded():
		warnColor.Fprintf(&b, "  num_slots=%d is below the %d distinct slots observed; H_norm is not bounded by 1", e.NumSlots, e.DistinctSlots)
		b.WriteString("\n")
	case e.Misconfigured:
		warnColor.Fprintf(&b, "  num_slots=%d is not a usable capacity", e.NumSlots)
		b.WriteString("\n")
	}

	if d := r.Detection; d != nil {
		fmt.Fprintf(&b, "\nInterpretation:\n")
		fmt.Fprintf(&b, "  → %s\n", d.Bucket.Description())
		if d.NearKStar {
			b.WriteString("\n")
			warnColor.Fprintf(&b, "  ⚠️  Entropy near k* = %.4f — possible phase transition!", KStar)
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func pctSuffix(f func() (float64, bool), verb string) string {
	v, ok := f()
	if !ok {
		return " (n/a)"
	}
	return fmt.Sprintf(" ("+verb+"%%)", v)
}

func formatHMax(e EntropyResult) string {
	if e.NumSlots <= 0 {
		return "undefined (num_slots <= 0)"
	}
	return fmt.Sprintf("%.4f", math.Log2(float64(e.NumSlots)))
}

// WriteSweepSummary renders the (contention, H_norm) table of a sweep.
func WriteSweepSummary(w io.Writer, points []Point) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	headingColor.Fprintf(&b, "ENTROPY VS CONTENTION (k* = %.4f)", KStar)
	fmt.Fprintf(&b, "\n%s\n", rule)
	if len(points) == 0 {
		b.WriteString("No contention level produced data.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "  %8s  %8s  %12s  %s\n", "threads", "H_norm", "events", "reading")
	for _, p := range points {
		d := Detect(p.HNorm)
		line := fmt.Sprintf("  %8d  %8.4f  %12s  %s", p.Contention, p.HNorm, numbers.Sprintf("%d", p.Events), d.Bucket)
		if d.NearKStar {
			warnColor.Fprintf(&b, "%s  <- near k*", line)
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
