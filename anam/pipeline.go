package anam

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anamnesis-pool/anamnesis-analyze/anam/trace"
)

// DefaultNumSlots matches the pool capacity used by the benchmark harness.
const DefaultNumSlots = 1024

// Status summarizes whether a run had anything to analyze.
type Status string

const (
	StatusOK      Status = "ok"
	StatusNoFiles Status = "no-files" // discovery found no trace files
	StatusNoData  Status = "no-data"  // files found but none held a complete record
)

// FileSummary records what one trace file contributed.
type FileSummary struct {
	Path      string
	Events    int
	Anomalies []trace.Anomaly
}

// Result is the outcome of analyzing one trace directory. All fields are
// populated once by the Analyzer and never mutated afterwards.
type Result struct {
	RunID     string
	Dir       string
	NumSlots  int
	Status    Status
	Files     []FileSummary
	Anomalies []trace.Anomaly

	Merged    *trace.Merged
	Digest    string
	Stats     OpStats
	Entropy   EntropyResult
	Detection *Detection // nil unless Status is StatusOK
}

// HasData reports whether the run produced events to analyze.
func (r *Result) HasData() bool { return r.Status == StatusOK }

// ReadFailures counts trace files that were found but could not be read.
func (r *Result) ReadFailures() int {
	n := 0
	for _, an := range r.Anomalies {
		if an.Kind == trace.AnomalyReadFailed {
			n++
		}
	}
	return n
}

// Analyzer runs the decode → merge → statistics → entropy → detection pipeline.
// An Analyzer holds configuration only and may be shared by concurrent runs.
type Analyzer struct {
	NumSlots   int
	Discoverer trace.Discoverer
	Logger     *logrus.Entry
}

// NewAnalyzer returns an Analyzer using the default per-thread file discovery.
func NewAnalyzer(numSlots int) *Analyzer {
	return &Analyzer{
		NumSlots:   numSlots,
		Discoverer: trace.GlobDiscoverer{},
		Logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (a *Analyzer) logger() *logrus.Entry {
	if a.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return a.Logger
}

// AnalyzeDir discovers, decodes and analyzes every trace file in dir.
// Malformed or unreadable files are reported in the Result and skipped; only
// a failed discovery or a cancelled context aborts the run.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string) (*Result, error) {
	disc := a.Discoverer
	if disc == nil {
		disc = trace.GlobDiscoverer{}
	}
	paths, err := disc.Discover(dir)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := a.logger().WithFields(logrus.Fields{"run": runID[:8], "dir": dir})
	if len(paths) == 0 {
		log.Warnf("No trace files found in %s", dir)
		res := a.analyze(runID, dir, nil, log)
		res.Status = StatusNoFiles
		return res, nil
	}

	log.Infof("Loading %d trace files...", len(paths))
	streams := make([]*trace.Stream, 0, len(paths))
	files := make([]FileSummary, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analyzing %s: %w", dir, err)
		}
		s, err := trace.DecodeFile(path)
		if err != nil {
			s.Anomalies = append(s.Anomalies, trace.Anomaly{
				Kind:   trace.AnomalyReadFailed,
				Source: filepath.Base(path),
				Offset: -1,
				Count:  len(s.Events),
				Detail: err.Error(),
				Err:    err,
			})
		}
		for _, an := range s.Anomalies {
			log.Warnf("Trace anomaly: %s", an)
		}
		log.Infof("  %s: %d entries", filepath.Base(path), len(s.Events))
		streams = append(streams, s)
		files = append(files, FileSummary{Path: path, Events: len(s.Events), Anomalies: s.Anomalies})
	}

	res := a.analyze(runID, dir, streams, log)
	res.Files = files
	return res, nil
}

// AnalyzeStreams runs the pipeline over already-decoded streams, in the given
// order. It never fails: empty input yields a StatusNoData result.
func (a *Analyzer) AnalyzeStreams(dir string, streams ...*trace.Stream) *Result {
	runID := uuid.New().String()
	log := a.logger().WithFields(logrus.Fields{"run": runID[:8], "dir": dir})
	return a.analyze(runID, dir, streams, log)
}

func (a *Analyzer) analyze(runID, dir string, streams []*trace.Stream, log *logrus.Entry) *Result {
	res := &Result{RunID: runID, Dir: dir, NumSlots: a.NumSlots}
	for _, s := range streams {
		if s != nil {
			res.Anomalies = append(res.Anomalies, s.Anomalies...)
		}
	}

	log.Debug("Sorting entries by timestamp...")
	res.Merged = trace.Merge(streams...)
	res.Digest = res.Merged.Digest()
	res.Stats = ComputeStats(res.Merged)
	res.Entropy = ReuseEntropy(res.Merged, a.NumSlots)

	if res.Merged.Empty() {
		res.Status = StatusNoData
		log.Warn("No events to analyze")
		return res
	}
	res.Status = StatusOK

	switch {
	case res.Entropy.CapacityExceeded():
		log.Warnf("num_slots=%d but %d distinct slots were allocated; H_norm=%.4f is not bounded by 1",
			a.NumSlots, res.Entropy.DistinctSlots, res.Entropy.HNorm)
	case res.Entropy.Misconfigured:
		log.Warnf("num_slots=%d is not a usable capacity; H_norm is reported as 0", a.NumSlots)
	}
	if res.Entropy.OutOfRange > 0 {
		log.Warnf("%d allocations used slots >= num_slots=%d", res.Entropy.OutOfRange, a.NumSlots)
	}

	det := Detect(res.Entropy.HNorm)
	res.Detection = &det
	log.WithField("digest", res.Digest).Infof("H_norm=%.4f (%s)", det.HNorm, det.Bucket)
	return res
}
