package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivafolio/entsync/pkg/core"
)

func newTestService(t *testing.T, files map[string]string) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	s := NewService(Config{WatchPaths: []string{dir}})
	require.NoError(t, s.scan(context.Background()))
	return s, dir
}

func TestScan_PopulatesStoreSilently(t *testing.T) {
	files := map[string]string{
		"people.csv": "Name,Age\nAlice,30\nBob,25\n",
		"note.md":    "---\ntitle: T\n---\nbody\n",
		"conf.json":  `{"k": "v"}`,
		"main.rs":    "mytable!(\"t1\", r#\"\nA,B\n1,2\n\"#);\n",
		"skip.txt":   "not an eligible extension",
	}

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	s := NewService(Config{WatchPaths: []string{dir}})

	var emitted int
	s.On(core.EventEntityCreated, func(any) error {
		emitted++
		return nil
	})

	require.NoError(t, s.scan(context.Background()))

	ids := make(map[string]bool)
	for _, e := range s.GetAllEntities() {
		ids[e.EntityID] = true
	}
	assert.True(t, ids["people-row-0"])
	assert.True(t, ids["people-row-1"])
	assert.True(t, ids["note"])
	assert.True(t, ids["conf"])
	assert.True(t, ids["t1-row-0"])
	assert.Len(t, ids, 5)

	assert.Equal(t, 0, emitted, "initial scan must not emit entity events")

	dsl := s.GetDSLModuleForEntityType("t1")
	require.NotNil(t, dsl)
	assert.Equal(t, "t1", dsl.EntityID)
}

func TestUpdateEntity_CSVRow(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name,Age,City\nAlice,30,NYC\nBob,25,LA\n",
	})

	var event core.EntityUpdateEvent
	s.On(core.EventEntityUpdated, func(payload any) error {
		event = payload.(core.EntityUpdateEvent)
		return nil
	})

	res := s.UpdateEntity(context.Background(), "people-row-0", core.Properties{"Age": "31"})
	require.True(t, res.Success, "update failed: %v", res.Err)

	data, err := os.ReadFile(filepath.Join(dir, "people.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Name,Age,City\nAlice,31,NYC\nBob,25,LA\n", string(data))

	ent, ok := s.GetEntity("people-row-0")
	require.True(t, ok)
	assert.Equal(t, "31", ent.Properties["Age"])
	assert.Equal(t, "Alice", ent.Properties["Name"], "unmentioned properties survive the merge")

	assert.Equal(t, "people-row-0", event.EntityID)
	assert.Equal(t, "30", event.PreviousProperties["Age"])
	assert.Equal(t, "31", event.Properties["Age"])
	assert.Equal(t, core.OpUpdate, event.OperationType)
}

func TestUpdateEntity_StoreMirrorsFile(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name,Age\nAlice,30\n",
	})

	// The module drops columns missing from the header and stringifies
	// values; the store must reflect the written file, not the raw props.
	res := s.UpdateEntity(context.Background(), "people-row-0",
		core.Properties{"Age": 31, "Ghost": "x"})
	require.True(t, res.Success, "update failed: %v", res.Err)

	ent, ok := s.GetEntity("people-row-0")
	require.True(t, ok)
	assert.Equal(t, "31", ent.Properties["Age"])
	_, hasGhost := ent.Properties["Ghost"]
	assert.False(t, hasGhost, "properties absent from the file must not linger in the store")

	var emitted int
	s.On(core.EventEntityUpdated, func(any) error {
		emitted++
		return nil
	})
	s.handleFileEvent(filepath.Join(dir, "people.csv"), core.FileChanged)
	assert.Equal(t, 0, emitted, "store and file agree, so a rescan must find no diff")
}

func TestUpdateEntity_UnknownIDIsFailedNoOp(t *testing.T) {
	s, _ := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})

	var emitted bool
	s.On(core.EventEntityUpdated, func(any) error {
		emitted = true
		return nil
	})

	res := s.UpdateEntity(context.Background(), "nope-row-7", core.Properties{"Name": "x"})
	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrUnknownEntity)
	assert.False(t, emitted, "failed mutations must not emit")
}

func TestCreateEntity_ExistingIDFails(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})

	meta := core.EntityMetadata{
		EntityTypeID: "people",
		SourceType:   core.SourceCSV,
		SourcePath:   filepath.Join(dir, "people.csv"),
		RowIndex:     0,
	}
	res := s.CreateEntity(context.Background(), "people-row-0", core.Properties{"Name": "B"}, meta)
	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrEntityExists)
}

func TestCreateEntity_AppendsAndReconciles(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name,Age\nAlice,30\n",
	})

	meta := core.EntityMetadata{
		EntityTypeID: "people",
		SourceType:   core.SourceCSV,
		SourcePath:   filepath.Join(dir, "people.csv"),
		RowIndex:     1,
	}
	res := s.CreateEntity(context.Background(), "people-row-1",
		core.Properties{"Name": "Bob", "Age": "25"}, meta)
	require.True(t, res.Success, "create failed: %v", res.Err)

	data, err := os.ReadFile(meta.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "Name,Age\nAlice,30\nBob,25\n", string(data))

	ent, ok := s.GetEntity("people-row-1")
	require.True(t, ok)
	assert.Equal(t, "Bob", ent.Properties["Name"])
}

func TestDeleteEntity_ShiftsRowIDs(t *testing.T) {
	s, _ := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\nBob\nCara\n",
	})

	res := s.DeleteEntity(context.Background(), "people-row-0")
	require.True(t, res.Success, "delete failed: %v", res.Err)

	// Bob and Cara shift down one position each.
	require.Equal(t, 2, len(s.GetAllEntities()))
	ent, ok := s.GetEntity("people-row-0")
	require.True(t, ok)
	assert.Equal(t, "Bob", ent.Properties["Name"])
	ent, ok = s.GetEntity("people-row-1")
	require.True(t, ok)
	assert.Equal(t, "Cara", ent.Properties["Name"])
	_, ok = s.GetEntity("people-row-2")
	assert.False(t, ok)
}

func TestDeleteEntity_ConstructRow(t *testing.T) {
	src := "fn main() {\n    mytable!(\"t1\", r#\"\nA,B\n1,2\n3,4\n\"#);\n}\n"
	s, dir := newTestService(t, map[string]string{"main.rs": src})

	res := s.DeleteEntity(context.Background(), "t1-row-0")
	require.True(t, res.Success, "delete failed: %v", res.Err)

	data, err := os.ReadFile(filepath.Join(dir, "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, "fn main() {\n    mytable!(\"t1\", r#\"\nA,B\n3,4\n\"#);\n}\n", string(data))

	ent, ok := s.GetEntity("t1-row-0")
	require.True(t, ok)
	assert.Equal(t, "3", ent.Properties["A"])
}

func TestPerformBatchOperations_PartialFailure(t *testing.T) {
	s, _ := newTestService(t, map[string]string{
		"people.csv": "Name,Age\nAlice,30\n",
	})

	var batches []core.BatchOperationEvent
	s.On(core.EventBatchOperation, func(payload any) error {
		batches = append(batches, payload.(core.BatchOperationEvent))
		return nil
	})

	result := s.PerformBatchOperations(context.Background(), []core.BatchOperation{
		{Type: core.OpUpdate, EntityID: "people-row-0", Properties: core.Properties{"Age": "31"}},
		{Type: core.OpUpdate, EntityID: "missing-row-9", Properties: core.Properties{"Age": "1"}},
	})

	assert.False(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.ErrorIs(t, result.Results[1].Err, core.ErrUnknownEntity)

	// Exactly one batch event, listing only the succeeded operation.
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Operations, 1)
	assert.Equal(t, "people-row-0", batches[0].Operations[0].EntityID)
}

func TestHandleFileEvent_DiffsAgainstStore(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name,Age\nAlice,30\nBob,25\n",
	})
	path := filepath.Join(dir, "people.csv")

	var updated, deleted, fileEvents []string
	s.On(core.EventEntityUpdated, func(payload any) error {
		updated = append(updated, payload.(core.EntityUpdateEvent).EntityID)
		return nil
	})
	s.On(core.EventEntityDeleted, func(payload any) error {
		deleted = append(deleted, payload.(core.EntityDeleteEvent).EntityID)
		return nil
	})
	s.On(core.EventFileChanged, func(payload any) error {
		ev := payload.(core.FileChangeEvent)
		fileEvents = append(fileEvents, ev.FilePath)
		return nil
	})

	// External edit: Alice's age changes, Bob's row disappears.
	require.NoError(t, os.WriteFile(path, []byte("Name,Age\nAlice,31\n"), 0644))
	s.handleFileEvent(path, core.FileChanged)

	assert.Equal(t, []string{"people-row-0"}, updated)
	assert.Equal(t, []string{"people-row-1"}, deleted)
	assert.Equal(t, []string{path}, fileEvents)

	// An identical re-extraction emits nothing.
	updated, deleted, fileEvents = nil, nil, nil
	s.handleFileEvent(path, core.FileChanged)
	assert.Empty(t, updated)
	assert.Empty(t, fileEvents)
}

func TestHandleFileEvent_RemovalDropsEntities(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})
	path := filepath.Join(dir, "people.csv")

	var deleted []string
	s.On(core.EventEntityDeleted, func(payload any) error {
		deleted = append(deleted, payload.(core.EntityDeleteEvent).EntityID)
		return nil
	})

	require.NoError(t, os.Remove(path))
	s.handleFileEvent(path, core.FileRemoved)

	assert.Equal(t, []string{"people-row-0"}, deleted)
	assert.Empty(t, s.GetAllEntities())
}

func TestHandleFileEvent_MissingFileTreatedAsRemoval(t *testing.T) {
	s, dir := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})
	path := filepath.Join(dir, "people.csv")

	require.NoError(t, os.Remove(path))
	// The watcher reported a change, but the file is already gone.
	s.handleFileEvent(path, core.FileChanged)

	assert.Empty(t, s.GetAllEntities())
}

func TestEligible_ExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	s := NewService(Config{
		WatchPaths:      []string{dir},
		ExcludePatterns: []string{"vendor/**", "*.gen.csv"},
	})

	assert.True(t, s.eligible(filepath.Join(dir, "data.csv")))
	assert.False(t, s.eligible(filepath.Join(dir, "vendor", "dep.csv")))
	assert.False(t, s.eligible(filepath.Join(dir, "models.gen.csv")))
	assert.False(t, s.eligible(filepath.Join(dir, "readme.txt")), "extension filter applies first")
}

func TestRegisterEditingModule_WinsDispatch(t *testing.T) {
	s, _ := newTestService(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})

	custom := &recordingModule{}
	s.RegisterEditingModule(custom)

	res := s.UpdateEntity(context.Background(), "people-row-0", core.Properties{"Name": "B"})
	require.True(t, res.Success)
	assert.Equal(t, []string{"update:people-row-0"}, custom.calls)
}

type recordingModule struct {
	calls []string
}

func (m *recordingModule) CanHandle(core.SourceType, core.EntityMetadata) bool { return true }

func (m *recordingModule) UpdateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	m.calls = append(m.calls, "update:"+entityID)
	return core.OK()
}

func (m *recordingModule) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	m.calls = append(m.calls, "create:"+entityID)
	return core.OK()
}

func (m *recordingModule) DeleteEntity(ctx context.Context, entityID string, meta core.EntityMetadata) core.OpResult {
	m.calls = append(m.calls, "delete:"+entityID)
	return core.OK()
}
