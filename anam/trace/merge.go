package trace

import (
	"encoding/hex"
	"iter"
	"slices"
	"sort"

	"github.com/spaolacci/murmur3"
)

// Merged is a globally timestamp-ordered event sequence built from one or
// more streams. It is immutable once returned by Merge.
type Merged struct {
	events []Event
}

// Merge concatenates the streams in argument order and stable-sorts the
// result by timestamp. Events with equal timestamps keep their concatenation
// order, so the merge is deterministic for a given stream order.
// Nil streams are skipped; no streams yields an empty (non-nil) Merged.
func Merge(streams ...*Stream) *Merged {
	n := 0
	for _, s := range streams {
		if s != nil {
			n += len(s.Events)
		}
	}
	events := make([]Event, 0, n)
	for _, s := range streams {
		if s != nil {
			events = append(events, s.Events...)
		}
	}
	return newMerged(events)
}

// MergeSources merges a mapping of source name to events. Sources are
// concatenated in lexicographic name order before sorting.
func MergeSources(sources map[string][]Event) *Merged {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	streams := make([]*Stream, 0, len(names))
	for _, name := range names {
		streams = append(streams, &Stream{Source: name, Events: sources[name]})
	}
	return Merge(streams...)
}

func newMerged(events []Event) *Merged {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return &Merged{events: events}
}

// Len returns the number of events.
func (m *Merged) Len() int {
	if m == nil {
		return 0
	}
	return len(m.events)
}

// Empty reports whether there is nothing to analyze.
func (m *Merged) Empty() bool { return m.Len() == 0 }

// At returns the i-th event in merged order.
func (m *Merged) At(i int) Event { return m.events[i] }

// All iterates over the events in merged order.
func (m *Merged) All() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		if m == nil {
			return
		}
		for i, ev := range m.events {
			if !yield(i, ev) {
				return
			}
		}
	}
}

// Events returns a copy of the merged events.
func (m *Merged) Events() []Event {
	if m == nil {
		return nil
	}
	return slices.Clone(m.events)
}

// Digest fingerprints the merged sequence with murmur3-128 over the canonical
// record encoding. Two merges with identical content and order share a digest.
func (m *Merged) Digest() string {
	h := murmur3.New128()
	buf := make([]byte, 0, RecordSize)
	for _, ev := range m.All() {
		buf, _ = ev.AppendBinary(buf[:0])
		_, _ = h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
