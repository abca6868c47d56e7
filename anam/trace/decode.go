package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
)

// ErrShortRecord marks a stream whose trailing bytes do not form a full record.
// It is carried by the Err field of the truncated-record anomaly.
var ErrShortRecord = errors.New("trace: truncated trailing record")

// AnomalyKind classifies a per-file decode anomaly.
type AnomalyKind string

const (
	// AnomalyTruncatedRecord: trailing bytes shorter than RecordSize were discarded.
	AnomalyTruncatedRecord AnomalyKind = "truncated-record"
	// AnomalyUnknownOp: one or more records carried an op code outside 0-4.
	AnomalyUnknownOp AnomalyKind = "unknown-op"
	// AnomalyReadFailed: the file could not be opened or read to the end.
	AnomalyReadFailed AnomalyKind = "read-failed"
	// AnomalySizeMismatch: the bytes decoded disagree with the size announced
	// before reading, e.g. a file still being written.
	AnomalySizeMismatch AnomalyKind = "size-mismatch"
)

// Anomaly is structured diagnostic information about one trace source.
type Anomaly struct {
	Kind   AnomalyKind
	Source string
	Offset int64 // byte offset of the first affected record
	Count  int   // discarded bytes for truncation, affected records otherwise
	Detail string
	Err    error // cause, for errors.Is; nil for unknown ops
}

func (a Anomaly) String() string {
	s := fmt.Sprintf("%s: %s at offset %d (count=%d)", a.Source, a.Kind, a.Offset, a.Count)
	if a.Detail != "" {
		s += ": " + a.Detail
	}
	return s
}

// Decoder reads fixed-size trace records from a byte stream.
// Records are yielded in file order; nothing is sorted here.
type Decoder struct {
	r   *bufio.Reader
	buf [RecordSize]byte
	err error

	offset         int64
	records        int
	truncatedBytes int
	unknownOps     int
	firstUnknown   int64
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*RecordSize), firstUnknown: -1}
}

// Next decodes the next record. It returns false at end of stream, after a
// truncated trailing record, or on a read error; check Err afterwards.
func (d *Decoder) Next() (Event, bool) {
	if d.err != nil {
		return Event{}, false
	}
	n, err := io.ReadFull(d.r, d.buf[:])
	switch {
	case err == io.EOF:
		d.err = io.EOF
		return Event{}, false
	case errors.Is(err, io.ErrUnexpectedEOF):
		d.truncatedBytes = n
		d.err = ErrShortRecord
		return Event{}, false
	case err != nil:
		d.err = fmt.Errorf("reading record at offset %d: %w", d.offset, err)
		return Event{}, false
	}

	ev := parseRecord(d.buf[:])
	if ev.Op == OpUnknown {
		if d.unknownOps == 0 {
			d.firstUnknown = d.offset
		}
		d.unknownOps++
	}
	d.offset += RecordSize
	d.records++
	return ev, true
}

// Err returns the first real read failure. End of stream and truncated
// trailing records are not errors; see TruncatedBytes for the latter.
func (d *Decoder) Err() error {
	if d.err == io.EOF || errors.Is(d.err, ErrShortRecord) {
		return nil
	}
	return d.err
}

// Offset is the byte offset just past the last complete record.
func (d *Decoder) Offset() int64 { return d.offset }

// Records is the number of complete records decoded so far.
func (d *Decoder) Records() int { return d.records }

// TruncatedBytes is the size of the discarded partial record, 0 if none.
func (d *Decoder) TruncatedBytes() int { return d.truncatedBytes }

// UnknownOps counts records whose op code fell outside the known set.
func (d *Decoder) UnknownOps() int { return d.unknownOps }

// Anomalies reports what the decoder observed for source so far.
func (d *Decoder) Anomalies(source string) []Anomaly {
	var out []Anomaly
	if d.unknownOps > 0 {
		out = append(out, Anomaly{
			Kind:   AnomalyUnknownOp,
			Source: source,
			Offset: d.firstUnknown,
			Count:  d.unknownOps,
			Detail: "records kept with op=unknown",
		})
	}
	if d.truncatedBytes > 0 {
		out = append(out, Anomaly{
			Kind:   AnomalyTruncatedRecord,
			Source: source,
			Offset: d.offset,
			Count:  d.truncatedBytes,
			Detail: fmt.Sprintf("%d trailing bytes discarded", d.truncatedBytes),
			Err:    ErrShortRecord,
		})
	}
	return out
}

// Stream is one decoded trace source.
type Stream struct {
	Source    string
	Events    []Event
	Anomalies []Anomaly
}

// DecodeStream eagerly decodes r. On a read failure the events decoded up to
// that point are still returned alongside the error.
func DecodeStream(source string, r io.Reader) (*Stream, error) {
	s, _, err := decode(source, r, 0)
	return s, err
}

// DecodeSized decodes r, which should hold exactly size bytes. The size
// presizes the event slice; when the stream turns out shorter or longer than
// announced, a size-mismatch anomaly is recorded.
func DecodeSized(source string, r io.Reader, size int64) (*Stream, error) {
	records, trailing, err := ExpectedRecords(size)
	if err != nil {
		return &Stream{Source: source}, fmt.Errorf("decoding %s: %w", source, err)
	}
	s, d, err := decode(source, r, records)
	if err != nil {
		return s, err
	}
	if d.Records() != records || d.TruncatedBytes() != trailing {
		s.Anomalies = append(s.Anomalies, Anomaly{
			Kind:   AnomalySizeMismatch,
			Source: source,
			Offset: d.Offset(),
			Count:  d.Records(),
			Detail: fmt.Sprintf("expected %d records and %d trailing bytes from %d bytes", records, trailing, size),
		})
	}
	return s, nil
}

func decode(source string, r io.Reader, capacity int) (*Stream, *Decoder, error) {
	d := NewDecoder(r)
	s := &Stream{Source: source, Events: make([]Event, 0, capacity)}
	for {
		ev, ok := d.Next()
		if !ok {
			break
		}
		s.Events = append(s.Events, ev)
	}
	s.Anomalies = d.Anomalies(source)
	if err := d.Err(); err != nil {
		return s, d, fmt.Errorf("decoding %s: %w", source, err)
	}
	return s, d, nil
}

// ExpectedRecords returns how many complete records a file of size bytes holds
// and how many trailing bytes are left over.
func ExpectedRecords(size int64) (records int, trailing int, err error) {
	if size < 0 {
		return 0, 0, fmt.Errorf("negative trace size %d", size)
	}
	records, err = safecast.Conv[int](size / RecordSize)
	if err != nil {
		return 0, 0, fmt.Errorf("trace of %d bytes: %w", size, err)
	}
	trailing, err = safecast.Conv[int](size % RecordSize)
	if err != nil {
		return 0, 0, fmt.Errorf("trace of %d bytes: %w", size, err)
	}
	return records, trailing, nil
}
