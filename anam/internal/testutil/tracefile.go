// Package testutil provides shared test infrastructure for the analyzer.
// It builds synthetic per-thread trace files in the allocator's binary format
// so anam/ and anam/trace/ tests can exercise the real decode path.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"

	"github.com/anamnesis-pool/anamnesis-analyze/anam/trace"
)

// Encode returns the binary record encoding of events.
func Encode(events []trace.Event) []byte {
	buf := make([]byte, 0, len(events)*trace.RecordSize)
	for _, ev := range events {
		buf, _ = ev.AppendBinary(buf)
	}
	return buf
}

// Allocs builds one ALLOC event per slot with timestamps start, start+step, ...
func Allocs(thread uint8, start, step uint64, slots ...uint32) []trace.Event {
	events := make([]trace.Event, len(slots))
	for i, s := range slots {
		events[i] = trace.NewEvent(start+uint64(i)*step, s, 1, trace.OpAlloc, thread)
	}
	return events
}

// AtTimestamps builds events of a single op on slot 0 at the given timestamps.
func AtTimestamps(thread uint8, op trace.OpType, timestamps ...uint64) []trace.Event {
	events := make([]trace.Event, len(timestamps))
	for i, ts := range timestamps {
		events[i] = trace.NewEvent(ts, 0, 0, op, thread)
	}
	return events
}

// ThreadFileName mirrors the tracer's trace_thread_NNN.bin naming.
func ThreadFileName(thread int) string {
	return fmt.Sprintf("trace_thread_%03d.bin", thread)
}

// WriteTraceFile writes events (plus optional raw trailing bytes) to dir/name.
func WriteTraceFile(t testing.TB, dir, name string, events []trace.Event, trailing ...byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := append(Encode(events), trailing...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing trace file %s: %v", path, err)
	}
	return path
}

// WriteCompressedTraceFile writes events snappy-framed to dir/name.
func WriteCompressedTraceFile(t testing.TB, dir, name string, events []trace.Event) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(Encode(events)); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("flushing %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
	return path
}

// Timestamps extracts timestamps in order.
func Timestamps(events []trace.Event) []uint64 {
	out := make([]uint64, len(events))
	for i, ev := range events {
		out[i] = ev.Timestamp
	}
	return out
}
