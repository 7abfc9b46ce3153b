package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/engine"
	"github.com/vivafolio/entsync/pkg/eventbus"
)

// startWatching boots a service over a temp dir and waits for the watcher
// to settle.
func startWatching(t *testing.T, files map[string]string) (*engine.Service, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	s := engine.NewService(engine.Config{WatchPaths: []string{dir}})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		cancel()
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	return s, dir
}

func TestWatch_ExternalEditEmitsUpdate(t *testing.T) {
	s, dir := startWatching(t, map[string]string{
		"people.csv": "Name,Age\nAlice,30\n",
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "people.csv"), []byte("Name,Age\nAlice,31\n"), 0644)
	}()

	payload, err := s.WaitFor(context.Background(), core.EventEntityUpdated,
		eventbus.WithTimeout(5*time.Second))
	require.NoError(t, err, "timed out waiting for update event")

	event := payload.(core.EntityUpdateEvent)
	assert.Equal(t, "people-row-0", event.EntityID)
	assert.Equal(t, "31", event.Properties["Age"])
}

func TestWatch_NewFileEmitsCreate(t *testing.T) {
	s, dir := startWatching(t, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "fresh.csv"), []byte("A\n1\n"), 0644)
	}()

	payload, err := s.WaitFor(context.Background(), core.EventEntityCreated,
		eventbus.WithTimeout(5*time.Second),
		eventbus.WithWaitFilter(func(p any) bool {
			ev, ok := p.(core.EntityCreateEvent)
			return ok && ev.EntityID == "fresh-row-0"
		}))
	require.NoError(t, err, "timed out waiting for create event")

	event := payload.(core.EntityCreateEvent)
	assert.Equal(t, core.SourceCSV, event.SourceType)

	_, ok := s.GetEntity("fresh-row-0")
	assert.True(t, ok)
}

func TestWatch_RemovedFileEmitsDelete(t *testing.T) {
	s, dir := startWatching(t, map[string]string{
		"gone.csv": "A\n1\n",
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.Remove(filepath.Join(dir, "gone.csv"))
	}()

	payload, err := s.WaitFor(context.Background(), core.EventEntityDeleted,
		eventbus.WithTimeout(5*time.Second))
	require.NoError(t, err, "timed out waiting for delete event")

	event := payload.(core.EntityDeleteEvent)
	assert.Equal(t, "gone-row-0", event.EntityID)
	assert.Empty(t, s.GetAllEntities())
}

func TestService_StartTwiceFails(t *testing.T) {
	s, _ := startWatching(t, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestService_State(t *testing.T) {
	s, _ := startWatching(t, map[string]string{
		"people.csv": "Name\nAlice\n",
	})

	state, ok := s.State().(engine.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 1, state.Entities)
	assert.Equal(t, 4, state.EditingModules)
	assert.True(t, state.WatcherActive)
	assert.Equal(t, "indexing-service", s.ComponentType())
}
