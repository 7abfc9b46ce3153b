// Entity is the central type of the domain.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceType identifies the file format an entity was extracted from.
type SourceType string

const (
	SourceCSV       SourceType = "csv"
	SourceMarkdown  SourceType = "markdown"
	SourceConstruct SourceType = "vivafolio_data_construct"
	SourceJSON      SourceType = "json"
)

// Properties represents the flexible key-value pairs of an entity.
// Write-back ordering always derives from the on-disk header or key order,
// so the map itself carries no ordering.
type Properties map[string]any

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Entity is the unit of synchronization: one record extracted from a file
// fragment (CSV row, frontmatter block, embedded table row, JSON document).
type Entity struct {
	EntityID     string
	EntityTypeID string
	SourceType   SourceType
	SourcePath   string
	// RowIndex is the zero-based data row position for row-oriented sources,
	// -1 otherwise. Indices shift when earlier rows are inserted or removed.
	RowIndex   int
	Properties Properties
	DSLModule  *DSLModule
}

// Metadata returns the provenance subset an editing module needs to locate
// the backing fragment on disk.
func (e *Entity) Metadata() EntityMetadata {
	return EntityMetadata{
		EntityTypeID: e.EntityTypeID,
		SourceType:   e.SourceType,
		SourcePath:   e.SourcePath,
		RowIndex:     e.RowIndex,
		DSLModule:    e.DSLModule,
	}
}

// EntityMetadata carries everything an EditingModule needs to address an
// entity's fragment without holding the entity itself.
type EntityMetadata struct {
	EntityTypeID string
	SourceType   SourceType
	SourcePath   string
	RowIndex     int
	DSLModule    *DSLModule
}

// RowEntityID derives the positional identifier for row-oriented sources.
func RowEntityID(base string, index int) string {
	return fmt.Sprintf("%s-row-%d", base, index)
}

// ParseRowIndex extracts the row index from a positional entity id.
// Returns -1 when the id does not follow the {base}-row-{index} form.
func ParseRowIndex(entityID string) int {
	i := strings.LastIndex(entityID, "-row-")
	if i == -1 {
		return -1
	}
	n, err := strconv.Atoi(entityID[i+len("-row-"):])
	if err != nil || n < 0 {
		return -1
	}
	return n
}
