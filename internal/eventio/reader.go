package eventio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mucoll/hitstats/pkg/core"
)

// Option configures a Reader.
type Option func(*Reader)

// WithSkip skips the first n events across all files.
func WithSkip(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.skip = n
		}
	}
}

// WithMaxEvents stops after n delivered events. n <= 0 means unlimited.
func WithMaxEvents(n int) Option {
	return func(r *Reader) {
		r.max = n
	}
}

// WithLogger sets the logger used for file transitions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		r.log = l
	}
}

// Reader streams events from an ordered list of JSON Lines files. Files
// ending in ".gz" are decompressed. Blank lines are ignored.
type Reader struct {
	paths []string
	skip  int
	max   int
	log   *slog.Logger

	next    int
	file    *os.File
	gz      *gzip.Reader
	buf     *bufio.Reader
	current string
	line    int

	skipped   int
	delivered int
}

var _ core.EventSource = (*Reader)(nil)

func NewReader(paths []string, opts ...Option) *Reader {
	r := &Reader{paths: append([]string(nil), paths...), log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the next event, or core.ErrNoMoreEvents.
func (r *Reader) Next(ctx context.Context) (*core.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.max > 0 && r.delivered >= r.max {
			return nil, core.ErrNoMoreEvents
		}

		line, err := r.readLine()
		if err != nil {
			return nil, err
		}

		if r.skipped < r.skip {
			r.skipped++
			continue
		}

		ev, err := ParseEvent(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", r.current, r.line, err)
		}
		r.delivered++
		return ev, nil
	}
}

// readLine returns the next non-blank line, opening files as needed.
func (r *Reader) readLine() ([]byte, error) {
	for {
		if r.buf == nil {
			if r.next >= len(r.paths) {
				return nil, core.ErrNoMoreEvents
			}
			if err := r.open(r.paths[r.next]); err != nil {
				return nil, err
			}
			r.next++
		}

		line, err := r.buf.ReadBytes('\n')
		if len(line) > 0 {
			r.line++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				return trimmed, nil
			}
		}
		if errors.Is(err, io.EOF) {
			if cerr := r.closeCurrent(); cerr != nil {
				return nil, cerr
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.current, err)
		}
	}
}

func (r *Reader) open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	r.file = f
	r.current = path
	r.line = 0

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			r.file = nil
			return fmt.Errorf("%s: %w", path, err)
		}
		r.gz = gz
		src = gz
	}
	r.buf = bufio.NewReaderSize(src, 1<<20)
	r.log.Debug("Opened input file", "path", path)
	return nil
}

func (r *Reader) closeCurrent() error {
	var errs []error
	if r.gz != nil {
		errs = append(errs, r.gz.Close())
		r.gz = nil
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
		r.file = nil
	}
	r.buf = nil
	return errors.Join(errs...)
}

// Close releases the open file, if any.
func (r *Reader) Close() error {
	return r.closeCurrent()
}

// Skipped returns how many events were skipped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Delivered returns how many events Next has returned.
func (r *Reader) Delivered() int {
	return r.delivered
}

// CurrentFile returns the file being read.
func (r *Reader) CurrentFile() string {
	return r.current
}

// Count returns the number of events in the given files without decoding
// them.
func Count(paths []string) (int, error) {
	r := NewReader(paths, WithLogger(slog.New(slog.DiscardHandler)))
	defer r.Close()

	n := 0
	for {
		_, err := r.readLine()
		if errors.Is(err, core.ErrNoMoreEvents) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}
