package anam

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// SeriesSink consumes the (contention, H_norm) series of a sweep, typically to
// hand it to an external plotting tool. Analysis never depends on a sink.
type SeriesSink interface {
	WriteSeries(s *Series) error
}

// Series is the exported form of a sweep.
type Series struct {
	CreatedAt string  `yaml:"created_at" msgpack:"created_at"`
	NumSlots  int     `yaml:"num_slots" msgpack:"num_slots"`
	KStar     float64 `yaml:"k_star" msgpack:"k_star"`
	Points    []Point `yaml:"points" msgpack:"points"`
}

// NewSeries wraps sweep points with the parameters needed to plot them.
func NewSeries(numSlots int, points []Point) *Series {
	return &Series{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		NumSlots:  numSlots,
		KStar:     KStar,
		Points:    points,
	}
}

// ExportFormat names a SeriesSink encoding.
type ExportFormat string

const (
	FormatYAML    ExportFormat = "yaml"
	FormatMsgpack ExportFormat = "msgpack"
	FormatCSV     ExportFormat = "csv"
)

// validExportFormats maps accepted format strings.
var validExportFormats = map[ExportFormat]bool{
	FormatYAML:    true,
	FormatMsgpack: true,
	FormatCSV:     true,
}

// CSV column headers for the series table.
var seriesColumns = []string{"contention", "h_norm", "events", "digest", "dir"}

// IsValidExportFormat returns true if format names a known encoding.
func IsValidExportFormat(format string) bool {
	return validExportFormats[ExportFormat(format)]
}

// WriterSink encodes a Series to an io.Writer.
type WriterSink struct {
	W      io.Writer
	Format ExportFormat
}

// WriteSeries implements SeriesSink.
func (s WriterSink) WriteSeries(series *Series) error {
	switch s.Format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(s.W)
		enc.SetIndent(2)
		if err := enc.Encode(series); err != nil {
			return fmt.Errorf("encoding series as yaml: %w", err)
		}
		return enc.Close()
	case FormatMsgpack:
		if err := msgpack.NewEncoder(s.W).Encode(series); err != nil {
			return fmt.Errorf("encoding series as msgpack: %w", err)
		}
		return nil
	case FormatCSV:
		return writeSeriesCSV(s.W, series)
	default:
		return fmt.Errorf("unknown export format %q", s.Format)
	}
}

// FileSink writes the series to Path, replacing any previous file.
type FileSink struct {
	Path   string
	Format ExportFormat
}

// WriteSeries implements SeriesSink.
func (s FileSink) WriteSeries(series *Series) (err error) {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating series file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing series file: %w", cerr)
		}
	}()
	return WriterSink{W: f, Format: s.Format}.WriteSeries(series)
}

// LoadSeries reads back a series written by a SeriesSink.
func LoadSeries(path string, format ExportFormat) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading series: %w", err)
	}
	var s Series
	switch format {
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &s)
	case FormatCSV:
		s.KStar = KStar
		s.Points, err = readSeriesCSV(bytes.NewReader(data))
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing series: %w", err)
	}
	return &s, nil
}

// writeSeriesCSV writes one row per point. H_norm keeps full precision.
func writeSeriesCSV(w io.Writer, series *Series) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(seriesColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range series.Points {
		row := []string{
			strconv.Itoa(p.Contention),
			strconv.FormatFloat(p.HNorm, 'g', -1, 64),
			strconv.Itoa(p.Events),
			p.Digest,
			p.Dir,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for level %d: %w", p.Contention, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func readSeriesCSV(r io.Reader) ([]Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(seriesColumns)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	var points []Point
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		contention, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing contention %q: %w", row[0], err)
		}
		hNorm, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing h_norm %q: %w", row[1], err)
		}
		events, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("parsing events %q: %w", row[2], err)
		}
		points = append(points, Point{Contention: contention, HNorm: hNorm, Events: events, Digest: row[3], Dir: row[4]})
	}
	return points, nil
}

// PublishSeries hands points to sink; a nil sink is a no-op.
func PublishSeries(sink SeriesSink, numSlots int, points []Point) error {
	if sink == nil || len(points) == 0 {
		return nil
	}
	return sink.WriteSeries(NewSeries(numSlots, points))
}
