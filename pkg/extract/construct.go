package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vivafolio/entsync/pkg/core"
)

// Construct discovery is a bounded pattern-matching pass over arbitrary
// source text, not a host-language grammar. Two forms are recognized:
//
//	name!("entity_id")                      single-line marker
//	name!("entity_id", r#"CSV table"#)      multi-line table literal
//
// Nested or escaped raw-string delimiters are out of scope.
var (
	markerPattern = regexp.MustCompile(`(\w+)!\(\s*"([^"]+)"\s*\)`)
	tablePattern  = regexp.MustCompile(`(?s)(\w+)!\(\s*"([^"]+)"\s*,\s*r#"(.*?)"#\s*\)`)
)

// TablePattern returns the pattern recognizing table constructs, recorded
// on generated DSLModule descriptors.
func TablePattern() string {
	return tablePattern.String()
}

// ParseError records a malformed table on its construct instead of failing
// the whole file: one bad construct never blocks the rest.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Construct is one recognized embedded-literal occurrence in source text.
type Construct struct {
	Name     string
	EntityID string
	Line     int // 1-based line of the opening marker

	// Table literal fields; zero values for marker-only constructs.
	HasTable bool
	RawTable string
	RawStart int // byte offset of the raw table text within the file
	RawEnd   int
	Header   []string
	Rows     [][]string

	ParseErr *ParseError
}

// Constructs scans source text in two passes: single-line markers first,
// then multi-line table literals.
func Constructs(data []byte) []Construct {
	src := string(data)
	var out []Construct

	// Pass 1: single-line markers. The marker pattern cannot match a table
	// opener because the table form has a comma after the id string.
	offset := 0
	for _, line := range strings.SplitAfter(src, "\n") {
		for _, m := range markerPattern.FindAllStringSubmatch(line, -1) {
			out = append(out, Construct{
				Name:     m[1],
				EntityID: m[2],
				Line:     lineAt(src, offset),
			})
		}
		offset += len(line)
	}

	// Pass 2: multi-line table literals.
	for _, idx := range tablePattern.FindAllStringSubmatchIndex(src, -1) {
		c := Construct{
			Name:     src[idx[2]:idx[3]],
			EntityID: src[idx[4]:idx[5]],
			Line:     lineAt(src, idx[0]),
			HasTable: true,
			RawTable: src[idx[6]:idx[7]],
			RawStart: idx[6],
			RawEnd:   idx[7],
		}
		c.Header, c.Rows, c.ParseErr = parseTable(c.RawTable, c.Line)
		out = append(out, c)
	}
	return out
}

// FindTable re-locates the table construct for entityID in the current file
// content. Used by write-back to anchor mutations.
func FindTable(data []byte, entityID string) (Construct, bool) {
	for _, c := range Constructs(data) {
		if c.HasTable && c.EntityID == entityID {
			return c, true
		}
	}
	return Construct{}, false
}

// ConstructFile extracts row entities from every well-formed table
// construct in the file. Constructs carrying a ParseErr contribute no
// entities but are still returned for diagnostics.
func ConstructFile(path string, data []byte) ([]core.Entity, []Construct) {
	constructs := Constructs(data)

	var entities []core.Entity
	for _, c := range constructs {
		if !c.HasTable || c.ParseErr != nil {
			continue
		}
		dsl := core.NewDSLModule(c.EntityID, TablePattern())
		for i, row := range c.Rows {
			props := make(core.Properties, len(c.Header))
			for j, h := range c.Header {
				if j < len(row) {
					props[h] = row[j]
				}
			}
			entities = append(entities, core.Entity{
				EntityID:     core.RowEntityID(c.EntityID, i),
				EntityTypeID: c.EntityID,
				SourceType:   core.SourceConstruct,
				SourcePath:   path,
				RowIndex:     i,
				Properties:   props,
				DSLModule:    dsl,
			})
		}
	}
	return entities, constructs
}

// parseTable reads the raw literal as a header row plus comma-separated
// data rows with quote stripping.
func parseTable(raw string, line int) (header []string, rows [][]string, perr *ParseError) {
	var dataLines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		dataLines = append(dataLines, l)
	}
	if len(dataLines) == 0 {
		return nil, nil, &ParseError{Line: line, Message: "empty table literal"}
	}

	header = SplitTableRow(dataLines[0])
	if len(header) == 0 {
		return nil, nil, &ParseError{Line: line, Message: "table has no header columns"}
	}

	for i, l := range dataLines[1:] {
		row := SplitTableRow(l)
		if len(row) != len(header) {
			return nil, nil, &ParseError{
				Line:    line,
				Message: fmt.Sprintf("row %d has %d cells, header has %d", i, len(row), len(header)),
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// SplitTableRow splits one table line into cells, trimming whitespace and
// stripping surrounding double quotes. A comma inside a quoted cell does
// not split; escaped quotes are not part of the syntax.
func SplitTableRow(line string) []string {
	var cells []string
	var buf strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case r == ',' && !inQuotes:
			cells = append(cells, trimCell(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	cells = append(cells, trimCell(buf.String()))
	return cells
}

func trimCell(raw string) string {
	cell := strings.TrimSpace(raw)
	if len(cell) >= 2 && strings.HasPrefix(cell, `"`) && strings.HasSuffix(cell, `"`) {
		cell = cell[1 : len(cell)-1]
	}
	return cell
}

func lineAt(src string, offset int) int {
	return 1 + strings.Count(src[:offset], "\n")
}
