package extract

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/vivafolio/entsync/pkg/core"
)

// JSONFile extracts one entity from the top-level object of a JSON file.
func JSONFile(path string, data []byte) ([]core.Entity, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json in %s", path)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("json document %s is not an object", path)
	}

	props := make(core.Properties)
	doc.ForEach(func(key, value gjson.Result) bool {
		props[key.String()] = value.Value()
		return true
	})
	if len(props) == 0 {
		return nil, nil
	}

	base := baseName(path)
	return []core.Entity{{
		EntityID:     base,
		EntityTypeID: base,
		SourceType:   core.SourceJSON,
		SourcePath:   path,
		RowIndex:     -1,
		Properties:   props,
	}}, nil
}
