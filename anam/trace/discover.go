package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/snappy"
)

// Default file-name patterns written by the allocator's per-thread tracer.
// The .sz variant is a snappy-framed copy of the same record stream.
const (
	ThreadTracePattern           = "trace_thread_*.bin"
	CompressedThreadTracePattern = "trace_thread_*.bin.sz"
	compressedSuffix             = ".sz"
)

// ErrNotDirectory is returned by Discover when the path exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// DefaultPatterns lists the patterns GlobDiscoverer uses when none are given.
var DefaultPatterns = []string{ThreadTracePattern, CompressedThreadTracePattern}

// Discoverer locates the per-thread trace files of one capture directory.
type Discoverer interface {
	Discover(dir string) ([]string, error)
}

// GlobDiscoverer matches file names in a directory against glob patterns.
type GlobDiscoverer struct {
	Patterns []string // defaults to DefaultPatterns when empty
}

// Discover returns matching regular files in lexicographic path order.
// An existing directory without matches yields an empty slice and no error.
func (g GlobDiscoverer) Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("trace directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("trace directory %s: %w", dir, ErrNotDirectory)
	}

	patterns := g.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	seen := make(map[string]bool)
	var paths []string
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, fmt.Errorf("bad trace pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if fi, err := os.Stat(m); err != nil || !fi.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsCompressed reports whether path names a snappy-framed trace.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, compressedSuffix)
}

type snappyFile struct {
	*snappy.Reader
	f *os.File
}

func (s snappyFile) Close() error { return s.f.Close() }

// Open opens a trace file for decoding, transparently decompressing .sz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if IsCompressed(path) {
		return snappyFile{Reader: snappy.NewReader(f), f: f}, nil
	}
	return f, nil
}

// DecodeFile opens and decodes one trace file. Plain files are checked
// against their size on disk; compressed ones are decoded as a stream.
func DecodeFile(path string) (*Stream, error) {
	source := filepath.Base(path)
	rc, err := Open(path)
	if err != nil {
		return &Stream{Source: source}, fmt.Errorf("opening trace: %w", err)
	}
	defer func() { _ = rc.Close() }()

	f, ok := rc.(*os.File)
	if !ok {
		return DecodeStream(source, rc)
	}
	info, err := f.Stat()
	if err != nil {
		return &Stream{Source: source}, fmt.Errorf("stat trace: %w", err)
	}
	return DecodeSized(source, f, info.Size())
}
