// Package modules contains the built-in EditingModule strategies. Every
// strategy performs surgical read-modify-write: only the addressed fragment
// of the backing file changes, everything else stays byte-identical.
package modules

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/extract"
)

// CSVModule edits one data row of a CSV file by position. The header and
// all other lines pass through untouched; full-file reserialization would
// lose quoting and whitespace the author chose.
//
// Row addressing assumes one physical line per record. Records with quoted
// embedded newlines are not supported for write-back.
type CSVModule struct{}

// NewCSVModule returns the CSV editing strategy.
func NewCSVModule() *CSVModule {
	return &CSVModule{}
}

// CanHandle reports whether the module edits the given source.
func (m *CSVModule) CanHandle(sourceType core.SourceType, _ core.EntityMetadata) bool {
	return sourceType == core.SourceCSV
}

// UpdateEntity rewrites the cells of one data row. Properties not present
// in the header are ignored; cells without a new value keep their current
// content.
func (m *CSVModule) UpdateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	header, err := extract.CSVHeader(data)
	if err != nil {
		return core.Fail(core.ErrStaleAnchor)
	}

	lines := strings.Split(string(data), "\n")
	target, ok := dataLine(lines, meta.RowIndex)
	if !ok {
		return core.Fail(core.ErrStaleAnchor)
	}

	line, hadCR := strings.CutSuffix(lines[target], "\r")
	cells := parseCSVLine(line)
	if cells == nil {
		return core.Fail(core.ErrStaleAnchor)
	}
	for len(cells) < len(header) {
		cells = append(cells, "")
	}

	for j, h := range header {
		if v, present := props[h]; present {
			cells[j] = propString(v)
		}
	}

	newLine := formatCSVRow(cells)
	if hadCR {
		newLine += "\r"
	}
	lines[target] = newLine

	return writeResult(meta.SourcePath, []byte(strings.Join(lines, "\n")))
}

// CreateEntity appends a new data row with cells in header order.
func (m *CSVModule) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	header, err := extract.CSVHeader(data)
	if err != nil {
		return core.Fail(core.ErrStaleAnchor)
	}

	lines := strings.Split(string(data), "\n")
	cells := make([]string, len(header))
	for j, h := range header {
		if v, present := props[h]; present {
			cells[j] = propString(v)
		}
	}

	last := lastContentLine(lines)
	row := formatCSVRow(cells)
	lines = append(lines[:last+1], append([]string{row}, lines[last+1:]...)...)

	return writeResult(meta.SourcePath, []byte(strings.Join(lines, "\n")))
}

// DeleteEntity removes one data row. Row identifiers of subsequent rows
// shift down by one; callers holding stale ids must re-query the store.
func (m *CSVModule) DeleteEntity(ctx context.Context, entityID string, meta core.EntityMetadata) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	if _, err := extract.CSVHeader(data); err != nil {
		return core.Fail(core.ErrStaleAnchor)
	}

	lines := strings.Split(string(data), "\n")
	target, ok := dataLine(lines, meta.RowIndex)
	if !ok {
		return core.Fail(core.ErrStaleAnchor)
	}

	lines = append(lines[:target], lines[target+1:]...)
	return writeResult(meta.SourcePath, []byte(strings.Join(lines, "\n")))
}

// dataLine maps a zero-based row index to its physical line. Blank lines are
// invisible to row addressing, matching how extraction numbers rows; the
// first non-blank line is the header.
func dataLine(lines []string, rowIndex int) (int, bool) {
	if rowIndex < 0 {
		return 0, false
	}
	seen := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		seen++
		if seen == 1+rowIndex {
			return i, true
		}
	}
	return 0, false
}

// lastContentLine returns the index of the last non-blank line.
func lastContentLine(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return 0
}

func parseCSVLine(line string) []string {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return nil
	}
	return record
}

func formatCSVRow(cells []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(cells)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

func propString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func writeResult(path string, data []byte) core.OpResult {
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return core.Fail(err)
	}
	return core.OK()
}
