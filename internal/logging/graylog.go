package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials a GELF UDP endpoint. The returned writer is meant
// for SlogManager.AddSink; callers close it on shutdown.
func NewGraylogWriter(address, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("graylog %s: %w", address, err)
	}
	if facility != "" {
		w.Facility = facility
	}
	return w, nil
}
