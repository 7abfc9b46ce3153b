package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vivafolio/entsync/pkg/core"
)

// CSVFile extracts one entity per data row. Ids follow {base}-row-{index}
// with the base taken from the file name; properties are keyed by the
// header row and all values are strings.
func CSVFile(path string, data []byte) ([]core.Entity, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	base := baseName(path)
	var entities []core.Entity
	for i := 0; ; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", i, err)
		}

		props := make(core.Properties, len(header))
		for j, h := range header {
			if j < len(row) {
				props[h] = row[j]
			}
		}

		entities = append(entities, core.Entity{
			EntityID:     core.RowEntityID(base, i),
			EntityTypeID: base,
			SourceType:   core.SourceCSV,
			SourcePath:   path,
			RowIndex:     i,
			Properties:   props,
		})
	}
	return entities, nil
}

// CSVHeader returns the header row of a CSV file, used by write-back to
// derive cell ordering.
func CSVHeader(data []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	return header, nil
}
