package modules

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/vivafolio/entsync/pkg/core"
)

// JSONModule edits a JSON document key by key. sjson splices values in
// place, so formatting and ordering of untouched parts of the document
// survive the write.
type JSONModule struct{}

// NewJSONModule returns the JSON editing strategy.
func NewJSONModule() *JSONModule {
	return &JSONModule{}
}

// CanHandle reports whether the module edits the given source.
func (m *JSONModule) CanHandle(sourceType core.SourceType, _ core.EntityMetadata) bool {
	return sourceType == core.SourceJSON
}

// UpdateEntity sets each property at its top-level key.
func (m *JSONModule) UpdateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	data, err := os.ReadFile(meta.SourcePath)
	if err != nil {
		return core.Fail(fmt.Errorf("failed to read %s: %w", meta.SourcePath, err))
	}
	if !gjson.ValidBytes(data) {
		return core.Fail(core.ErrStaleAnchor)
	}

	for key, value := range props {
		data, err = sjson.SetBytes(data, escapeKey(key), value)
		if err != nil {
			return core.Fail(fmt.Errorf("failed to set %q: %w", key, err))
		}
	}
	return writeResult(meta.SourcePath, data)
}

// CreateEntity writes a new JSON document holding props. An existing file
// already has its entity.
func (m *JSONModule) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	if _, err := os.Stat(meta.SourcePath); err == nil {
		return core.Fail(core.ErrEntityExists)
	}

	data := []byte("{}\n")
	var err error
	for key, value := range props {
		data, err = sjson.SetBytes(data, escapeKey(key), value)
		if err != nil {
			return core.Fail(fmt.Errorf("failed to set %q: %w", key, err))
		}
	}
	return writeResult(meta.SourcePath, data)
}

// DeleteEntity removes the backing file.
func (m *JSONModule) DeleteEntity(ctx context.Context, entityID string, meta core.EntityMetadata) core.OpResult {
	if _, err := os.Stat(meta.SourcePath); os.IsNotExist(err) {
		return core.Fail(core.ErrStaleAnchor)
	}
	if err := os.Remove(meta.SourcePath); err != nil {
		return core.Fail(fmt.Errorf("failed to remove %s: %w", meta.SourcePath, err))
	}
	return core.OK()
}

// escapeKey protects literal dots in property names from sjson's path
// syntax.
func escapeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}
