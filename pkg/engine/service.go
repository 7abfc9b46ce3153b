// Package engine wires scanning, watching, editing-module dispatch, the
// entity store and the event bus into the indexing service.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/eventbus"
	"github.com/vivafolio/entsync/pkg/extract"
	"github.com/vivafolio/entsync/pkg/modules"
	"github.com/vivafolio/entsync/pkg/store"
)

// DefaultExtensions are the file extensions eligible for extraction when
// the configuration names none. Source-code extensions are scanned for
// embedded constructs.
var DefaultExtensions = []string{".csv", ".md", ".json", ".rs", ".py", ".js", ".ts", ".go"}

const defaultEventBuffer = 100

// Config holds the recognized indexing options.
type Config struct {
	// WatchPaths are the roots to scan and watch.
	WatchPaths []string
	// SupportedExtensions limits extraction to matching files.
	SupportedExtensions []string
	// ExcludePatterns are doublestar globs matched against paths relative
	// to their watch root.
	ExcludePatterns []string

	// Delivery selects the bus delivery mode (synchronous by default).
	Delivery eventbus.DeliveryMode
	// MaxListeners overrides the bus leak-warning threshold when > 0.
	MaxListeners int
	// BusErrorHandler receives listener errors; defaults to logging.
	BusErrorHandler eventbus.ErrorHandler

	Logger *slog.Logger
	// ErrorHandler receives runtime watcher failures.
	ErrorHandler func(error)
}

// Service is the orchestrator: the only component that knows the editing
// modules, the store and the bus. It owns an explicit ordered module list;
// dispatch is first-match-wins, with no process-wide registry.
type Service struct {
	config Config
	logger *slog.Logger
	bus    *eventbus.Bus
	store  *store.Store

	mu         sync.RWMutex
	modules    []core.EditingModule
	dslModules map[string]*core.DSLModule
	worker     *watchWorker
	started    bool
}

// fileEvent is one watcher notification after mapping to the engine's
// vocabulary.
type fileEvent struct {
	Path string
	Type core.FileEventType
}

// NewService creates a service with the built-in editing modules
// registered in order CSV, Markdown, JSON, DSL.
func NewService(config Config) *Service {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if len(config.SupportedExtensions) == 0 {
		config.SupportedExtensions = DefaultExtensions
	}

	busOpts := []eventbus.BusOption{eventbus.WithLogger(config.Logger)}
	if config.MaxListeners > 0 {
		busOpts = append(busOpts, eventbus.WithMaxListeners(config.MaxListeners))
	}
	if config.BusErrorHandler != nil {
		busOpts = append(busOpts, eventbus.WithErrorHandler(config.BusErrorHandler))
	}

	return &Service{
		config: config,
		logger: config.Logger,
		bus:    eventbus.New(config.Delivery, busOpts...),
		store:  store.New(),
		modules: []core.EditingModule{
			modules.NewCSVModule(),
			modules.NewMarkdownModule(),
			modules.NewJSONModule(),
			modules.NewDSLExecutor(),
		},
		dslModules: make(map[string]*core.DSLModule),
	}
}

// RegisterEditingModule adds a module ahead of the built-ins, so custom
// strategies win the first-match dispatch.
func (s *Service) RegisterEditingModule(m core.EditingModule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules = append([]core.EditingModule{m}, s.modules...)
}

// Start performs the initial scan and begins watching. The scan populates
// the store without emitting events: there is no previously observed state
// to diff against.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := s.scan(ctx); err != nil {
		return err
	}

	events := make(chan fileEvent, defaultEventBuffer)
	worker := newWatchWorker(s, events)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	s.mu.Lock()
	s.worker = worker
	s.mu.Unlock()

	go s.consume(ctx, events)
	return nil
}

// Stop halts the watcher. Listeners stay subscribed; a stopped service can
// still serve reads and explicit mutations.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	worker := s.worker
	s.worker = nil
	s.started = false
	s.mu.Unlock()

	if worker == nil {
		return nil
	}
	return worker.Stop(ctx)
}

func (s *Service) consume(ctx context.Context, events <-chan fileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleFileEvent(ev.Path, ev.Type)
		}
	}
}

func (s *Service) scan(ctx context.Context) error {
	for _, root := range s.config.WatchPaths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.eligible(path) {
				return nil
			}
			if _, err := s.refreshPath(path); err != nil {
				s.logger.Warn("skipping unparseable file", "path", path, "error", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}
	return nil
}

// handleFileEvent re-extracts the file, diffs against the previously known
// entity set for that path, and emits events only for what changed.
func (s *Service) handleFileEvent(path string, eventType core.FileEventType) {
	var diff store.Diff

	if eventType == core.FileRemoved {
		diff = s.store.ReplacePath(path, nil)
	} else {
		var err error
		diff, err = s.refreshPath(path)
		if err != nil {
			if os.IsNotExist(err) {
				s.handleFileEvent(path, core.FileRemoved)
				return
			}
			s.logger.Warn("failed to re-extract file", "path", path, "error", err)
			return
		}
	}

	if diff.Empty() {
		return
	}
	s.emitDiff(path, eventType, diff)
}

// refreshPath re-extracts one file and swaps its entity set in the store,
// returning the diff. DSLModule descriptors discovered along the way are
// cached by entity type.
func (s *Service) refreshPath(path string) (store.Diff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Diff{}, err
	}

	entities, constructs, err := extract.File(path, data)
	if err != nil {
		return store.Diff{}, err
	}
	for _, c := range constructs {
		if c.ParseErr != nil {
			s.logger.Warn("malformed construct skipped",
				"path", path,
				"construct", c.EntityID,
				"error", c.ParseErr,
			)
		}
	}

	s.mu.Lock()
	for _, e := range entities {
		if e.DSLModule != nil {
			s.dslModules[e.EntityTypeID] = e.DSLModule
		}
	}
	s.mu.Unlock()

	return s.store.ReplacePath(path, entities), nil
}

func (s *Service) emitDiff(path string, eventType core.FileEventType, diff store.Diff) {
	now := time.Now()
	sourceType := extract.SourceTypeForPath(path)

	s.bus.Emit(core.EventFileChanged, core.FileChangeEvent{
		FilePath:         path,
		EventType:        eventType,
		Timestamp:        now,
		AffectedEntities: diff.AffectedIDs(),
		SourceType:       sourceType,
	})

	for _, e := range diff.Created {
		s.bus.Emit(core.EventEntityCreated, core.EntityCreateEvent{
			EntityID:      e.EntityID,
			Properties:    e.Properties,
			Timestamp:     now,
			SourcePath:    e.SourcePath,
			SourceType:    e.SourceType,
			OperationType: core.OpCreate,
		})
	}
	for _, e := range diff.Updated {
		s.bus.Emit(core.EventEntityUpdated, core.EntityUpdateEvent{
			EntityID:           e.EntityID,
			Properties:         e.Properties,
			PreviousProperties: diff.Previous[e.EntityID],
			Timestamp:          now,
			SourcePath:         e.SourcePath,
			SourceType:         e.SourceType,
			OperationType:      core.OpUpdate,
		})
	}
	for _, e := range diff.Removed {
		s.bus.Emit(core.EventEntityDeleted, core.EntityDeleteEvent{
			EntityID:      e.EntityID,
			Properties:    e.Properties,
			Timestamp:     now,
			SourcePath:    e.SourcePath,
			SourceType:    e.SourceType,
			OperationType: core.OpDelete,
		})
	}
}

// eligible filters paths by extension and exclude patterns.
func (s *Service) eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(s.config.SupportedExtensions, ext) {
		return false
	}

	rel := filepath.ToSlash(s.relToRoot(path))
	for _, pattern := range s.config.ExcludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(path)); ok {
			return false
		}
	}
	return true
}

func (s *Service) relToRoot(path string) string {
	for _, root := range s.config.WatchPaths {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

// --- Public CRUD API ---

// UpdateEntity rewrites the entity's fragment on disk and updates the
// store only after the write succeeds. Unknown ids fail without emitting.
func (s *Service) UpdateEntity(ctx context.Context, entityID string, props core.Properties) core.OpResult {
	ent, ok := s.store.Get(entityID)
	if !ok {
		return core.Fail(core.ErrUnknownEntity)
	}
	meta := ent.Metadata()

	mod := s.moduleFor(meta)
	if mod == nil {
		return core.Fail(core.ErrNoModule)
	}

	res := mod.UpdateEntity(ctx, entityID, props, meta)
	if !res.Success {
		return res
	}

	// Reload from disk rather than merging props into the cached entity:
	// the module may have dropped unknown keys or stringified values, and
	// the store must mirror the file exactly.
	previous := ent.Properties
	current := props
	if _, err := s.refreshPath(meta.SourcePath); err != nil {
		s.logger.Warn("failed to reload after update", "path", meta.SourcePath, "error", err)
		merged := previous.Clone()
		for k, v := range props {
			merged[k] = v
		}
		ent.Properties = merged
		s.store.Put(ent)
		current = merged
	} else if stored, ok := s.store.Get(entityID); ok {
		current = stored.Properties
	}

	s.bus.Emit(core.EventEntityUpdated, core.EntityUpdateEvent{
		EntityID:           entityID,
		Properties:         current,
		PreviousProperties: previous,
		Timestamp:          time.Now(),
		SourcePath:         meta.SourcePath,
		SourceType:         meta.SourceType,
		OperationType:      core.OpUpdate,
	})
	return res
}

// CreateEntity adds a new fragment described by meta. Ids already present
// in the store fail without emitting.
func (s *Service) CreateEntity(ctx context.Context, entityID string, props core.Properties, meta core.EntityMetadata) core.OpResult {
	if _, exists := s.store.Get(entityID); exists {
		return core.Fail(core.ErrEntityExists)
	}

	mod := s.moduleFor(meta)
	if mod == nil {
		return core.Fail(core.ErrNoModule)
	}

	res := mod.CreateEntity(ctx, entityID, props, meta)
	if !res.Success {
		return res
	}

	rowIndex := meta.RowIndex
	if idx := core.ParseRowIndex(entityID); idx >= 0 {
		rowIndex = idx
	}
	s.store.Put(core.Entity{
		EntityID:     entityID,
		EntityTypeID: meta.EntityTypeID,
		SourceType:   meta.SourceType,
		SourcePath:   meta.SourcePath,
		RowIndex:     rowIndex,
		Properties:   props.Clone(),
		DSLModule:    meta.DSLModule,
	})
	s.reconcileRows(meta)

	s.bus.Emit(core.EventEntityCreated, core.EntityCreateEvent{
		EntityID:      entityID,
		Properties:    props,
		Timestamp:     time.Now(),
		SourcePath:    meta.SourcePath,
		SourceType:    meta.SourceType,
		OperationType: core.OpCreate,
	})
	return res
}

// DeleteEntity removes the entity's fragment. For row-oriented sources the
// identifiers of subsequent rows shift down by one; the store is
// reconciled against the rewritten file immediately.
func (s *Service) DeleteEntity(ctx context.Context, entityID string) core.OpResult {
	ent, ok := s.store.Get(entityID)
	if !ok {
		return core.Fail(core.ErrUnknownEntity)
	}
	meta := ent.Metadata()

	mod := s.moduleFor(meta)
	if mod == nil {
		return core.Fail(core.ErrNoModule)
	}

	res := mod.DeleteEntity(ctx, entityID, meta)
	if !res.Success {
		return res
	}

	s.store.Delete(entityID)
	s.reconcileRows(meta)

	s.bus.Emit(core.EventEntityDeleted, core.EntityDeleteEvent{
		EntityID:      entityID,
		Properties:    ent.Properties,
		Timestamp:     time.Now(),
		SourcePath:    meta.SourcePath,
		SourceType:    meta.SourceType,
		OperationType: core.OpDelete,
	})
	return res
}

// reconcileRows re-numbers row-oriented entities after an insert or delete
// shifted positions. The renumbering itself emits no events; only the
// explicit mutation does.
func (s *Service) reconcileRows(meta core.EntityMetadata) {
	if meta.SourceType != core.SourceCSV && meta.SourceType != core.SourceConstruct {
		return
	}
	if _, err := s.refreshPath(meta.SourcePath); err != nil {
		s.logger.Warn("failed to reconcile rows", "path", meta.SourcePath, "error", err)
	}
}

// PerformBatchOperations executes the calls sequentially, never
// atomically, and reports each outcome. Exactly one batch-operation event
// is emitted, listing only the operations that succeeded.
func (s *Service) PerformBatchOperations(ctx context.Context, ops []core.BatchOperation) core.BatchResult {
	result := core.BatchResult{Success: true, Results: make([]core.OpResult, len(ops))}
	var succeeded []core.BatchOperation

	for i, op := range ops {
		var res core.OpResult
		switch op.Type {
		case core.OpCreate:
			if op.Metadata == nil {
				res = core.Fail(fmt.Errorf("create operation for %q has no metadata", op.EntityID))
			} else {
				res = s.CreateEntity(ctx, op.EntityID, op.Properties, *op.Metadata)
			}
		case core.OpUpdate:
			res = s.UpdateEntity(ctx, op.EntityID, op.Properties)
		case core.OpDelete:
			res = s.DeleteEntity(ctx, op.EntityID)
		default:
			res = core.Fail(fmt.Errorf("unknown batch operation type %q", op.Type))
		}

		result.Results[i] = res
		if res.Success {
			succeeded = append(succeeded, op)
		} else {
			result.Success = false
		}
	}

	s.bus.Emit(core.EventBatchOperation, core.BatchOperationEvent{
		Operations:    succeeded,
		Timestamp:     time.Now(),
		OperationType: core.OpBatch,
	})
	return result
}

// --- Queries ---

// GetAllEntities returns every entity in the store.
func (s *Service) GetAllEntities() []core.Entity {
	return s.store.All()
}

// GetEntity returns one entity by id.
func (s *Service) GetEntity(entityID string) (core.Entity, bool) {
	return s.store.Get(entityID)
}

// GetEntityMetadata returns the provenance of one entity.
func (s *Service) GetEntityMetadata(entityID string) (core.EntityMetadata, bool) {
	ent, ok := s.store.Get(entityID)
	if !ok {
		return core.EntityMetadata{}, false
	}
	return ent.Metadata(), true
}

// GetDSLModuleForEntityType returns the cached descriptor for a construct,
// or nil when the construct has never been discovered.
func (s *Service) GetDSLModuleForEntityType(entityTypeID string) *core.DSLModule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dslModules[entityTypeID]
}

func (s *Service) moduleFor(meta core.EntityMetadata) core.EditingModule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.modules {
		if m.CanHandle(meta.SourceType, meta) {
			return m
		}
	}
	return nil
}

// --- Bus passthrough ---

// On subscribes to an engine event.
func (s *Service) On(event string, fn eventbus.Handler, opts ...eventbus.ListenerOption) string {
	return s.bus.On(event, fn, opts...)
}

// Once subscribes for a single delivery.
func (s *Service) Once(event string, fn eventbus.Handler, opts ...eventbus.ListenerOption) string {
	return s.bus.Once(event, fn, opts...)
}

// Off removes a listener.
func (s *Service) Off(event, id string) bool {
	return s.bus.Off(event, id)
}

// OffAll removes all listeners for the named events, or every listener.
func (s *Service) OffAll(events ...string) {
	s.bus.OffAll(events...)
}

// WaitFor blocks until a matching payload is emitted or the deadline hits.
func (s *Service) WaitFor(ctx context.Context, event string, opts ...eventbus.WaitOption) (any, error) {
	return s.bus.WaitFor(ctx, event, opts...)
}

// Bus exposes the underlying event bus.
func (s *Service) Bus() *eventbus.Bus {
	return s.bus
}
