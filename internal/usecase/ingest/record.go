package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// maxLineBytes allows a base64 page image plus its description on one line.
const maxLineBytes = 16 << 20

// Record is one chunk line of an ingest file.
type Record struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	IsImage bool   `json:"is_image,omitempty"`
	Image   string `json:"image,omitempty"`
}

// Document validates the record and converts it into a chunk.
func (r Record) Document() (document.Document, error) {
	d, err := document.New(strings.TrimSpace(r.ID), r.Content, r.Source, r.Page)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if r.IsImage {
		if r.Image == "" {
			return document.Document{}, fmt.Errorf("%w: image chunk without payload", domain.ErrInvalidRequest)
		}
		d = d.WithImage(r.Image)
	}
	return d, nil
}

// LineError reports a line that is not valid JSON.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() []error { return []error{domain.ErrInvalidRequest, e.Err} }

// ReadRecords decodes JSON-lines chunk records. Blank lines are skipped; malformed
// lines are reported per line without stopping the scan.
func ReadRecords(r io.Reader) ([]Record, []*LineError, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		records []Record
		bad     []*LineError
		line    int
	)
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			bad = append(bad, &LineError{Line: line, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, bad, fmt.Errorf("read records: %w", err)
	}
	return records, bad, nil
}
