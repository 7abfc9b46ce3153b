package modules

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vivafolio/entsync/pkg/core"
)

// MarkdownModule edits the YAML frontmatter block of a Markdown file.
// Only matching key lines change; the body and unrelated keys stay
// byte-identical.
type MarkdownModule struct{}

// NewMarkdownModule returns the Markdown frontmatter editing strategy.
func NewMarkdownModule() *MarkdownModule {
	return &MarkdownModule{}
}

// CanHandle reports whether the module edits the given source.
func (m *MarkdownModule) CanHandle(sourceType core.SourceType, _ core.EntityMetadata) bool {
	return sourceType == core.SourceMarkdown
}

// UpdateEntity rewrites the lines of matching keys inside the frontmatter
// block. Keys not yet present are inserted before the closing delimiter.
func (m *MarkdownModule) UpdateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	lines := strings.Split(string(data), "\n")
	open, closing, ok := frontmatterBounds(lines)
	if !ok {
		return core.Fail(core.ErrStaleAnchor)
	}

	for key, value := range props {
		valueLines, err := yamlKeyLines(key, value)
		if err != nil {
			return core.Fail(fmt.Errorf("failed to encode %q: %w", key, err))
		}

		start, end, found := keyExtent(lines, open+1, closing, key)
		if found {
			lines = splice(lines, start, end, valueLines)
			closing += len(valueLines) - (end - start)
		} else {
			lines = splice(lines, closing, closing, valueLines)
			closing += len(valueLines)
		}
	}

	return writeResult(meta.SourcePath, []byte(strings.Join(lines, "\n")))
}

// CreateEntity writes a new Markdown file whose frontmatter holds props, or
// prepends a frontmatter block to an existing file that lacks one. A file
// that already carries frontmatter already has its entity.
func (m *MarkdownModule) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	block, err := frontmatterBytes(props)
	if err != nil {
		return core.Fail(err)
	}

	data, err := os.ReadFile(meta.SourcePath)
	if os.IsNotExist(err) {
		return writeResult(meta.SourcePath, block)
	}
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}

	if _, _, ok := frontmatterBounds(strings.Split(string(data), "\n")); ok {
		return core.Fail(core.ErrEntityExists)
	}
	return writeResult(meta.SourcePath, append(block, data...))
}

// DeleteEntity removes the backing file: a frontmatter entity is the file.
func (m *MarkdownModule) DeleteEntity(ctx context.Context, entityID string, meta core.EntityMetadata) core.OpResult {
	if _, err := os.Stat(meta.SourcePath); os.IsNotExist(err) {
		return core.Fail(core.ErrStaleAnchor)
	}
	if err := os.Remove(meta.SourcePath); err != nil {
		return core.Fail(fmt.Errorf("failed to remove %s: %w", meta.SourcePath, err))
	}
	return core.OK()
}

// frontmatterBounds returns the line indices of the opening and closing
// "---" delimiters.
func frontmatterBounds(lines []string) (open, closing int, ok bool) {
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != "---" {
		return 0, 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == "---" {
			return 0, i, true
		}
	}
	return 0, 0, false
}

// keyExtent finds the line range [start, end) of a top-level key and its
// continuation lines inside the block.
func keyExtent(lines []string, from, to int, key string) (start, end int, found bool) {
	for i := from; i < to; i++ {
		trimmed := strings.TrimRight(lines[i], "\r")
		if trimmed == key+":" || strings.HasPrefix(trimmed, key+": ") {
			end = i + 1
			for end < to && isContinuationLine(lines[end]) {
				end++
			}
			return i, end, true
		}
	}
	return 0, 0, false
}

func isContinuationLine(line string) bool {
	return strings.HasPrefix(line, " ") ||
		strings.HasPrefix(line, "\t") ||
		strings.HasPrefix(line, "- ")
}

// yamlKeyLines renders one key/value pair as frontmatter lines, inline for
// scalars and block style for sequences and mappings.
func yamlKeyLines(key string, value any) ([]string, error) {
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSuffix(string(encoded), "\n")

	if !strings.Contains(body, "\n") && !strings.HasPrefix(body, "- ") {
		return []string{fmt.Sprintf("%s: %s", key, body)}, nil
	}

	out := []string{key + ":"}
	out = append(out, strings.Split(body, "\n")...)
	return out, nil
}

func frontmatterBytes(props core.Properties) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(map[string]any(props)); err != nil {
		return nil, fmt.Errorf("failed to serialize frontmatter: %w", err)
	}
	encoder.Close()
	buf.WriteString("---\n")
	return buf.Bytes(), nil
}

func splice(lines []string, start, end int, replacement []string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)
	return out
}
