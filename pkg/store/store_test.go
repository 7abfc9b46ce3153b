package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/store"
)

func rowEntity(id, path string, row int, props core.Properties) core.Entity {
	return core.Entity{
		EntityID:     id,
		EntityTypeID: "t",
		SourceType:   core.SourceCSV,
		SourcePath:   path,
		RowIndex:     row,
		Properties:   props,
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	s := store.New()

	e := rowEntity("t-row-0", "a.csv", 0, core.Properties{"x": "1"})
	s.Put(e)

	got, ok := s.Get("t-row-0")
	require.True(t, ok)
	assert.Equal(t, e, got)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Delete("t-row-0"))
	assert.False(t, s.Delete("t-row-0"))
	_, ok = s.Get("t-row-0")
	assert.False(t, ok)
	assert.Empty(t, s.ForPath("a.csv"))
}

func TestStore_ForPath(t *testing.T) {
	s := store.New()
	s.Put(rowEntity("a-row-0", "a.csv", 0, nil))
	s.Put(rowEntity("a-row-1", "a.csv", 1, nil))
	s.Put(rowEntity("b-row-0", "b.csv", 0, nil))

	got := s.ForPath("a.csv")
	require.Len(t, got, 2)
	assert.Equal(t, "a-row-0", got[0].EntityID)
	assert.Equal(t, "a-row-1", got[1].EntityID)
}

func TestReplacePath_Diff(t *testing.T) {
	s := store.New()
	s.ReplacePath("a.csv", []core.Entity{
		rowEntity("t-row-0", "a.csv", 0, core.Properties{"Name": "Alice"}),
		rowEntity("t-row-1", "a.csv", 1, core.Properties{"Name": "Bob"}),
	})

	diff := s.ReplacePath("a.csv", []core.Entity{
		rowEntity("t-row-0", "a.csv", 0, core.Properties{"Name": "Alicia"}),
		rowEntity("t-row-2", "a.csv", 2, core.Properties{"Name": "Cara"}),
	})

	require.Len(t, diff.Created, 1)
	assert.Equal(t, "t-row-2", diff.Created[0].EntityID)

	require.Len(t, diff.Updated, 1)
	assert.Equal(t, "t-row-0", diff.Updated[0].EntityID)
	assert.Equal(t, core.Properties{"Name": "Alice"}, diff.Previous["t-row-0"])

	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "t-row-1", diff.Removed[0].EntityID)

	assert.Equal(t, []string{"t-row-2", "t-row-0", "t-row-1"}, diff.AffectedIDs())
	assert.Equal(t, 2, s.Len())
}

func TestReplacePath_UnchangedEntitiesProduceEmptyDiff(t *testing.T) {
	s := store.New()
	entities := []core.Entity{
		rowEntity("t-row-0", "a.csv", 0, core.Properties{"Name": "Alice"}),
	}
	s.ReplacePath("a.csv", entities)

	diff := s.ReplacePath("a.csv", entities)
	assert.True(t, diff.Empty())
}

func TestReplacePath_RemoveAll(t *testing.T) {
	s := store.New()
	s.ReplacePath("a.csv", []core.Entity{
		rowEntity("t-row-0", "a.csv", 0, nil),
		rowEntity("t-row-1", "a.csv", 1, nil),
	})

	diff := s.ReplacePath("a.csv", nil)
	require.Len(t, diff.Removed, 2)
	assert.Equal(t, "t-row-0", diff.Removed[0].EntityID)
	assert.Equal(t, "t-row-1", diff.Removed[1].EntityID)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ForPath("a.csv"))
}

func TestReplacePath_DoesNotTouchOtherPaths(t *testing.T) {
	s := store.New()
	s.Put(rowEntity("b-row-0", "b.csv", 0, core.Properties{"x": "y"}))

	diff := s.ReplacePath("a.csv", []core.Entity{
		rowEntity("a-row-0", "a.csv", 0, nil),
	})
	require.Len(t, diff.Created, 1)

	_, ok := s.Get("b-row-0")
	assert.True(t, ok)
}
