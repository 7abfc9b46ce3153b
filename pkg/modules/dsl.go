package modules

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/extract"
)

// DSLExecutor rewrites table literals embedded in arbitrary source text.
// Every mutation re-locates the construct pattern in the file's current
// content, rebuilds only the addressed row inside the raw table text, and
// reassembles the surrounding source unchanged. This is the strategy the
// generated DSLModule descriptors resolve to.
type DSLExecutor struct{}

// NewDSLExecutor returns the embedded-construct editing strategy.
func NewDSLExecutor() *DSLExecutor {
	return &DSLExecutor{}
}

// CanHandle reports whether the executor edits the given source.
func (m *DSLExecutor) CanHandle(sourceType core.SourceType, meta core.EntityMetadata) bool {
	return sourceType == core.SourceConstruct
}

// UpdateEntity rewrites the cells of one embedded table row.
func (m *DSLExecutor) UpdateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	return m.mutate(meta, func(t *tableLiteral) error {
		pos, ok := t.rowLine(meta.RowIndex)
		if !ok {
			return core.ErrStaleAnchor
		}

		cells := extract.SplitTableRow(t.lines[pos])
		for len(cells) < len(t.header) {
			cells = append(cells, "")
		}
		for j, h := range t.header {
			if v, present := props[h]; present {
				cells[j] = propString(v)
			}
		}

		t.lines[pos] = leadingWhitespace(t.lines[pos]) + formatTableRow(cells)
		return nil
	})
}

// CreateEntity appends a data row to the embedded table.
func (m *DSLExecutor) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	return m.mutate(meta, func(t *tableLiteral) error {
		cells := make([]string, len(t.header))
		for j, h := range t.header {
			if v, present := props[h]; present {
				cells[j] = propString(v)
			}
		}

		last := t.lastLine()
		row := leadingWhitespace(t.lines[last]) + formatTableRow(cells)
		t.lines = splice(t.lines, last+1, last+1, []string{row})
		return nil
	})
}

// DeleteEntity removes one data row from the embedded table. Identifiers
// of subsequent rows shift down by one.
func (m *DSLExecutor) DeleteEntity(ctx context.Context, entityID string, meta core.EntityMetadata) core.OpResult {
	return m.mutate(meta, func(t *tableLiteral) error {
		pos, ok := t.rowLine(meta.RowIndex)
		if !ok {
			return core.ErrStaleAnchor
		}
		t.lines = splice(t.lines, pos, pos+1, nil)
		return nil
	})
}

// mutate runs the read → re-locate → rewrite → reassemble cycle shared by
// all three operations.
func (m *DSLExecutor) mutate(meta core.EntityMetadata, edit func(*tableLiteral) error) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	c, found := extract.FindTable(data, meta.EntityTypeID)
	if !found {
		return core.Fail(core.ErrStaleAnchor)
	}
	if c.ParseErr != nil {
		return core.Fail(fmt.Errorf("construct %q is malformed: %w", meta.EntityTypeID, c.ParseErr))
	}

	t := &tableLiteral{
		header: c.Header,
		lines:  strings.Split(c.RawTable, "\n"),
	}
	if err := edit(t); err != nil {
		return core.Fail(err)
	}

	var out []byte
	out = append(out, data[:c.RawStart]...)
	out = append(out, []byte(strings.Join(t.lines, "\n"))...)
	out = append(out, data[c.RawEnd:]...)
	return writeResult(meta.SourcePath, out)
}

// tableLiteral is the line-wise view of one raw table text. Blank lines
// around the table belong to the literal and are preserved verbatim.
type tableLiteral struct {
	header []string
	lines  []string
}

// contentLines returns the indices of non-blank lines: the header first,
// then the data rows in order.
func (t *tableLiteral) contentLines() []int {
	var out []int
	for i, l := range t.lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, i)
		}
	}
	return out
}

// rowLine maps a zero-based data row index to its line position.
func (t *tableLiteral) rowLine(rowIndex int) (int, bool) {
	content := t.contentLines()
	pos := 1 + rowIndex
	if rowIndex < 0 || pos >= len(content) {
		return 0, false
	}
	return content[pos], true
}

// lastLine returns the position of the last non-blank line.
func (t *tableLiteral) lastLine() int {
	content := t.contentLines()
	return content[len(content)-1]
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// formatTableRow joins cells with commas, quoting only cells that would
// otherwise break the row apart.
func formatTableRow(cells []string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if strings.Contains(c, ",") {
			out[i] = `"` + c + `"`
		} else {
			out[i] = c
		}
	}
	return strings.Join(out, ",")
}
