package report

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONLWriter writes one JSON object per line.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter returns a writer over w. Call Flush when done.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

// Write appends records.
func (j *JSONLWriter) Write(records ...Record) error {
	for _, r := range records {
		if err := j.enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (j *JSONLWriter) Flush() error {
	return j.w.Flush()
}
