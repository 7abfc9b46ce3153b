package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/extract"
)

const rustSource = `fn main() {
    vivafolio_data!("tasks", r#"
        Name,Status,Priority
        Fix parser,Open,High
        Ship release,Done,Low
    "#);
    run();
}
`

func TestConstructs_TableLiteral(t *testing.T) {
	constructs := extract.Constructs([]byte(rustSource))
	require.Len(t, constructs, 1)

	c := constructs[0]
	assert.Equal(t, "vivafolio_data", c.Name)
	assert.Equal(t, "tasks", c.EntityID)
	assert.Equal(t, 2, c.Line)
	assert.True(t, c.HasTable)
	require.Nil(t, c.ParseErr)

	assert.Equal(t, []string{"Name", "Status", "Priority"}, c.Header)
	require.Len(t, c.Rows, 2)
	assert.Equal(t, []string{"Fix parser", "Open", "High"}, c.Rows[0])
	assert.Equal(t, []string{"Ship release", "Done", "Low"}, c.Rows[1])
}

func TestConstructs_MarkerOnly(t *testing.T) {
	src := `let gadget = show_gadget!("gadget-42");`
	constructs := extract.Constructs([]byte(src))
	require.Len(t, constructs, 1)

	c := constructs[0]
	assert.Equal(t, "show_gadget", c.Name)
	assert.Equal(t, "gadget-42", c.EntityID)
	assert.Equal(t, 1, c.Line)
	assert.False(t, c.HasTable)
}

func TestConstructs_RawOffsetsSpliceCleanly(t *testing.T) {
	data := []byte(rustSource)
	c, ok := extract.FindTable(data, "tasks")
	require.True(t, ok)

	// Replacing the raw span with itself must reproduce the file exactly.
	rebuilt := string(data[:c.RawStart]) + c.RawTable + string(data[c.RawEnd:])
	assert.Equal(t, rustSource, rebuilt)
}

func TestConstructs_MalformedTableIsIsolated(t *testing.T) {
	src := `mytable!("bad", r#"
A,B
1,2,3
"#);
other!("good", r#"
X,Y
7,8
"#);
`
	entities, constructs := extract.ConstructFile("src/lib.rs", []byte(src))
	require.Len(t, constructs, 2)

	var bad, good extract.Construct
	for _, c := range constructs {
		switch c.EntityID {
		case "bad":
			bad = c
		case "good":
			good = c
		}
	}

	require.NotNil(t, bad.ParseErr, "cell count mismatch must surface as ParseErr")
	assert.Contains(t, bad.ParseErr.Message, "cells")
	assert.Nil(t, good.ParseErr)

	// Only the well-formed construct contributes entities.
	require.Len(t, entities, 1)
	assert.Equal(t, "good-row-0", entities[0].EntityID)
	assert.Equal(t, core.Properties{"X": "7", "Y": "8"}, entities[0].Properties)
}

func TestConstructs_EmptyTable(t *testing.T) {
	src := `t!("empty", r#"
"#);`
	constructs := extract.Constructs([]byte(src))
	require.Len(t, constructs, 1)
	require.NotNil(t, constructs[0].ParseErr)
	assert.Contains(t, constructs[0].ParseErr.Message, "empty")
}

func TestConstructFile_Entities(t *testing.T) {
	entities, _ := extract.ConstructFile("src/main.rs", []byte(rustSource))
	require.Len(t, entities, 2)

	first := entities[0]
	assert.Equal(t, "tasks-row-0", first.EntityID)
	assert.Equal(t, "tasks", first.EntityTypeID)
	assert.Equal(t, core.SourceConstruct, first.SourceType)
	assert.Equal(t, "src/main.rs", first.SourcePath)
	assert.Equal(t, 0, first.RowIndex)
	assert.Equal(t, "Fix parser", first.Properties["Name"])

	require.NotNil(t, first.DSLModule)
	assert.Equal(t, "tasks", first.DSLModule.EntityID)
	assert.Contains(t, first.DSLModule.Operations, "updateEntity")
	assert.Contains(t, first.DSLModule.Operations, "createEntity")
	assert.Contains(t, first.DSLModule.Operations, "deleteEntity")
}

func TestSplitTableRow(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, extract.SplitTableRow(" a , b ,c"))
	assert.Equal(t, []string{"quoted", "plain"}, extract.SplitTableRow(`"quoted", plain`))
	assert.Equal(t, []string{"a, b", "c"}, extract.SplitTableRow(`"a, b", c`))
}

func TestFindTable_Missing(t *testing.T) {
	_, ok := extract.FindTable([]byte("nothing here"), "tasks")
	assert.False(t, ok)
}
