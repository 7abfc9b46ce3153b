package extract

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vivafolio/entsync/pkg/core"
)

// MarkdownFile extracts one entity from the YAML frontmatter block of a
// Markdown file. The body never becomes part of the entity; files without
// frontmatter yield no entity at all.
func MarkdownFile(path string, data []byte) ([]core.Entity, error) {
	block, ok := FrontmatterBlock(data)
	if !ok {
		return nil, nil
	}

	props := make(core.Properties)
	if err := yaml.Unmarshal(block, &props); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if len(props) == 0 {
		return nil, nil
	}

	base := baseName(path)
	return []core.Entity{{
		EntityID:     base,
		EntityTypeID: base,
		SourceType:   core.SourceMarkdown,
		SourcePath:   path,
		RowIndex:     -1,
		Properties:   props,
	}}, nil
}

// FrontmatterBlock returns the raw YAML between the opening and closing
// "---" delimiters, without the delimiters themselves. The closing delimiter
// must be a line containing exactly "---"; lines like "----" or "---foo"
// belong to the block.
func FrontmatterBlock(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return nil, false
	}
	rest := data[bytes.IndexByte(data, '\n')+1:]

	offset := 0
	for offset <= len(rest) {
		end := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if end == -1 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+end]
		}
		if string(bytes.TrimSuffix(line, []byte("\r"))) == "---" {
			return rest[:offset], true
		}
		if end == -1 {
			break
		}
		offset += end + 1
	}
	return nil, false
}
