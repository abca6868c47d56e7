package anam

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-pool/anamnesis-analyze/anam/internal/testutil"
	"github.com/anamnesis-pool/anamnesis-analyze/anam/trace"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestWriteReport_NoFiles_SaysNoData(t *testing.T) {
	// GIVEN a run over a directory without trace files
	withoutColor(t)
	res, err := quietAnalyzer(1024, &bytes.Buffer{}).AnalyzeDir(t.Context(), t.TempDir())
	require.NoError(t, err)

	// WHEN rendered
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	// THEN it reports no data and prints no percentages
	assert.Contains(t, out.String(), "No trace files found")
	assert.NotContains(t, out.String(), "%")
	assert.NotContains(t, out.String(), "H_norm")
}

func TestWriteReport_PopulatedRun_MirrorsSummaryLayout(t *testing.T) {
	// GIVEN 1500 allocs over two slots plus a stale get
	withoutColor(t)
	var slots []uint32
	for i := 0; i < 1500; i++ {
		slots = append(slots, uint32(i%2))
	}
	events := append(testutil.Allocs(0, 1, 1, slots...), trace.NewEvent(5000, 0, 1, trace.OpGetStale, 1))
	res := quietAnalyzer(2, &bytes.Buffer{}).AnalyzeStreams("traces_c4", &trace.Stream{Events: events})

	// WHEN rendered
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))
	s := out.String()

	// THEN the summary sections are present with grouped counts
	assert.Contains(t, s, "TRACE ANALYSIS: traces_c4")
	assert.Contains(t, s, "Total operations: 1,501")
	assert.Contains(t, s, "Allocations:      1,500 (99.9%)")
	assert.Contains(t, s, "Stale:       1 (100.00%)")
	assert.Contains(t, s, "H_norm = 1.0000")
	assert.Contains(t, s, "H_max  = log2(2) = 1.0000")
	assert.Contains(t, s, "Nearly uniform slot reuse")
	assert.NotContains(t, s, "k* =")
}

func TestWriteReport_NearKStar_Warns(t *testing.T) {
	// GIVEN slots 0,0,1,2 over num_slots=4: H = 1.5 bits, H_norm = 0.75
	withoutColor(t)
	res := quietAnalyzer(4, &bytes.Buffer{}).AnalyzeStreams("d", &trace.Stream{Events: testutil.Allocs(0, 1, 1, 0, 0, 1, 2)})
	require.InDelta(t, 0.75, res.Entropy.HNorm, 1e-12)

	// WHEN rendered
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	// THEN the phase-transition warning is printed
	assert.Contains(t, out.String(), "Entropy near k* = 0.7213")
	assert.Contains(t, out.String(), "Moderately uniform reuse")
}

func TestWriteReport_AnomaliesAndMisconfiguration_Listed(t *testing.T) {
	withoutColor(t)
	s := &trace.Stream{
		Source: "trace_thread_002.bin",
		Events: testutil.Allocs(0, 1, 1, 0, 1, 2),
		Anomalies: []trace.Anomaly{{
			Kind: trace.AnomalyTruncatedRecord, Source: "trace_thread_002.bin", Offset: 48, Count: 3,
		}},
	}
	res := quietAnalyzer(2, &bytes.Buffer{}).AnalyzeStreams("d", s)

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	assert.Contains(t, out.String(), "trace_thread_002.bin: truncated-record at offset 48 (count=3)")
	assert.Contains(t, out.String(), "num_slots=2 is below the 3 distinct slots observed")
}

func TestWriteReport_ZeroCapacity_Flagged(t *testing.T) {
	// GIVEN releases only and num_slots=0
	withoutColor(t)
	s := &trace.Stream{Source: "t", Events: testutil.AtTimestamps(0, trace.OpRelease, 1, 2)}
	res := quietAnalyzer(0, &bytes.Buffer{}).AnalyzeStreams("d", s)

	// WHEN rendered
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	// THEN the capacity is called out without the distinct-slot comparison
	assert.Contains(t, out.String(), "num_slots=0 is not a usable capacity")
	assert.NotContains(t, out.String(), "distinct slots observed")
}

func TestWriteReport_ZeroCapacityWithAllocs_NoUnboundedClaim(t *testing.T) {
	withoutColor(t)
	s := &trace.Stream{Source: "t", Events: testutil.Allocs(0, 1, 1, 0, 1, 2)}
	res := quietAnalyzer(0, &bytes.Buffer{}).AnalyzeStreams("d", s)

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	assert.Contains(t, out.String(), "num_slots=0 is not a usable capacity")
	assert.NotContains(t, out.String(), "not bounded by 1")
}

func TestWriteReport_AllFilesUnreadable_MentionsReadFailures(t *testing.T) {
	// GIVEN a directory whose only trace cannot be read
	withoutColor(t)
	dir := t.TempDir()
	writeCorruptCompressedTrace(t, dir, "trace_thread_000.bin.sz")
	res, err := quietAnalyzer(1024, &bytes.Buffer{}).AnalyzeDir(t.Context(), dir)
	require.NoError(t, err)
	require.Equal(t, StatusNoData, res.Status)

	// WHEN rendered
	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, res))

	// THEN the no-data line says why
	assert.Contains(t, out.String(), "(1 could not be read): no data to analyze.")
}

func TestWriteSweepSummary_Table(t *testing.T) {
	withoutColor(t)
	var out bytes.Buffer

	require.NoError(t, WriteSweepSummary(&out, []Point{
		{Contention: 1, HNorm: 0.1, Events: 10},
		{Contention: 8, HNorm: 0.72, Events: 12000},
	}))

	lines := strings.Split(out.String(), "\n")
	var rows []string
	for _, l := range lines {
		if strings.Contains(l, "biased") || strings.Contains(l, "uniform") {
			rows = append(rows, l)
		}
	}
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "highly biased")
	assert.Contains(t, rows[1], "12,000")
	assert.Contains(t, rows[1], "near k*")
}

func TestWriteSweepSummary_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteSweepSummary(&out, nil))
	assert.Contains(t, out.String(), "No contention level produced data.")
}
