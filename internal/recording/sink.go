// Package recording defines the visualization-log sink the converter writes
// to, plus a file-backed implementation. The sink owns the timeline: SetTime
// establishes the timestamp stamped on every record logged after it.
package recording

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"umigallery/pkg/models"
)

// Sink receives timestamped, entity-path-addressed records in log order
type Sink interface {
	// SetTime sets the timeline position, in seconds, for subsequent records
	SetTime(seconds float64)

	// Log appends one record at the entity path
	Log(entityPath string, rec models.Record) error

	// Close flushes and finalizes the recording
	Close() error
}

// envelope is the on-disk line format: one JSON object per record
type envelope struct {
	Time   float64       `json:"time"`
	Entity string        `json:"entity"`
	Kind   string        `json:"kind"`
	Record models.Record `json:"record"`
}

// header is the first line of a recording file
type header struct {
	Recording string `json:"recording"`
	Version   int    `json:"version"`
}

// FileSink writes a recording as newline-delimited JSON envelopes. Byte
// payloads are base64 inside the JSON, which keeps the format transparent and
// directly servable by the gallery.
type FileSink struct {
	w       *bufio.Writer
	enc     *json.Encoder
	seconds float64
	started bool
	name    string
}

// NewFileSink creates a sink writing to w. name identifies the recording
// (typically the capture file stem) and is written in the header line.
func NewFileSink(w io.Writer, name string) *FileSink {
	bw := bufio.NewWriter(w)
	return &FileSink{w: bw, enc: json.NewEncoder(bw), name: name}
}

// SetTime sets the timeline position for subsequent records
func (s *FileSink) SetTime(seconds float64) {
	s.seconds = seconds
}

// Log appends one record line
func (s *FileSink) Log(entityPath string, rec models.Record) error {
	if !s.started {
		if err := s.enc.Encode(header{Recording: s.name, Version: 1}); err != nil {
			return fmt.Errorf("failed to write recording header: %w", err)
		}
		s.started = true
	}
	env := envelope{Time: s.seconds, Entity: entityPath, Kind: rec.Kind(), Record: rec}
	if err := s.enc.Encode(env); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close flushes buffered lines. The underlying writer is owned by the caller.
func (s *FileSink) Close() error {
	if !s.started {
		// Empty runs still get a valid header-only file
		if err := s.enc.Encode(header{Recording: s.name, Version: 1}); err != nil {
			return fmt.Errorf("failed to write recording header: %w", err)
		}
		s.started = true
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush recording: %w", err)
	}
	return nil
}
