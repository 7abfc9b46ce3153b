// Package extract turns file contents into entities. Each extractor is
// read-only; write-back is the job of the editing modules, which reuse the
// same parsing rules so that extract → edit → extract round-trips.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/vivafolio/entsync/pkg/core"
)

// SourceTypeForPath maps a file path to the source type used to extract it.
// Anything that is not CSV, Markdown or JSON is treated as arbitrary source
// text and scanned for embedded constructs.
func SourceTypeForPath(path string) core.SourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return core.SourceCSV
	case ".md", ".markdown":
		return core.SourceMarkdown
	case ".json":
		return core.SourceJSON
	default:
		return core.SourceConstruct
	}
}

// File extracts all entities from one file. For construct sources the
// discovered constructs (including ones with parse errors) are returned
// alongside the entities so callers can surface per-construct diagnostics.
func File(path string, data []byte) ([]core.Entity, []Construct, error) {
	switch SourceTypeForPath(path) {
	case core.SourceCSV:
		ents, err := CSVFile(path, data)
		return ents, nil, err
	case core.SourceMarkdown:
		ents, err := MarkdownFile(path, data)
		return ents, nil, err
	case core.SourceJSON:
		ents, err := JSONFile(path, data)
		return ents, nil, err
	default:
		ents, constructs := ConstructFile(path, data)
		return ents, constructs, nil
	}
}

// baseName returns the file name without directory or extension, the {base}
// part of row-oriented entity ids.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
