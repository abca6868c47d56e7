package anam

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePoints = []Point{
	{Contention: 1, HNorm: 0.12, Events: 100, Digest: "aa", Dir: "traces_c1"},
	{Contention: 16, HNorm: 0.71, Events: 4000, Digest: "bb", Dir: "traces_c16"},
}

func TestFileSink_RoundTripsAllFormats(t *testing.T) {
	for _, format := range []ExportFormat{FormatYAML, FormatMsgpack, FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			// GIVEN a sink writing to a temp file
			path := filepath.Join(t.TempDir(), "series."+string(format))
			sink := FileSink{Path: path, Format: format}

			// WHEN a series is published and loaded back
			require.NoError(t, PublishSeries(sink, 1024, samplePoints))
			got, err := LoadSeries(path, format)

			// THEN the points and parameters survive
			require.NoError(t, err)
			assert.Equal(t, samplePoints, got.Points)
			assert.InDelta(t, KStar, got.KStar, 1e-12)
			if format != FormatCSV {
				// the CSV table carries points only
				assert.Equal(t, 1024, got.NumSlots)
				assert.NotEmpty(t, got.CreatedAt)
			}
		})
	}
}

func TestWriterSink_YAMLFieldNames(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriterSink{W: &buf, Format: FormatYAML}.WriteSeries(NewSeries(64, samplePoints[:1])))

	assert.Contains(t, buf.String(), "num_slots: 64")
	assert.Contains(t, buf.String(), "contention: 1")
	assert.Contains(t, buf.String(), "h_norm: 0.12")
}

func TestWriterSink_CSVHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriterSink{W: &buf, Format: FormatCSV}.WriteSeries(NewSeries(64, samplePoints)))

	assert.Equal(t,
		"contention,h_norm,events,digest,dir\n1,0.12,100,aa,traces_c1\n16,0.71,4000,bb,traces_c16\n",
		buf.String())
}

func TestWriterSink_UnknownFormat_Error(t *testing.T) {
	err := WriterSink{W: &bytes.Buffer{}, Format: "png"}.WriteSeries(NewSeries(2, nil))
	assert.Error(t, err)
}

func TestPublishSeries_NilSinkOrNoPoints_NoOp(t *testing.T) {
	assert.NoError(t, PublishSeries(nil, 1024, samplePoints))

	var buf bytes.Buffer
	assert.NoError(t, PublishSeries(WriterSink{W: &buf}, 1024, nil))
	assert.Zero(t, buf.Len())
}

func TestIsValidExportFormat(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"yaml", true},
		{"msgpack", true},
		{"csv", true},
		{"", false},
		{"YAML", false}, // case-sensitive
		{"png", false},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := IsValidExportFormat(tt.format); got != tt.valid {
				t.Errorf("IsValidExportFormat(%q) = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}
