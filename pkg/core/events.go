package core

import "time"

// Event names emitted on the bus.
const (
	EventFileChanged    = "file-changed"
	EventEntityCreated  = "entity-created"
	EventEntityUpdated  = "entity-updated"
	EventEntityDeleted  = "entity-deleted"
	EventBatchOperation = "batch-operation"
)

// FileEventType classifies a file change notification.
type FileEventType string

const (
	FileAdded   FileEventType = "add"
	FileChanged FileEventType = "change"
	FileRemoved FileEventType = "unlink"
)

// Operation type tags carried on event payloads.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpBatch  = "batch"
)

// FileChangeEvent is emitted once per processed file notification, carrying
// the ids of every entity the change created, updated or removed.
type FileChangeEvent struct {
	FilePath         string        `json:"filePath"`
	EventType        FileEventType `json:"eventType"`
	Timestamp        time.Time     `json:"timestamp"`
	AffectedEntities []string      `json:"affectedEntities"`
	SourceType       SourceType    `json:"sourceType"`
}

// EntityCreateEvent is emitted after an entity appears, either through the
// API or through an observed file change.
type EntityCreateEvent struct {
	EntityID      string     `json:"entityId"`
	Properties    Properties `json:"properties"`
	Timestamp     time.Time  `json:"timestamp"`
	SourcePath    string     `json:"sourcePath"`
	SourceType    SourceType `json:"sourceType"`
	OperationType string     `json:"operationType"`
}

// EntityUpdateEvent is emitted after an entity's properties change.
// PreviousProperties is nil when the prior state is unknown.
type EntityUpdateEvent struct {
	EntityID           string     `json:"entityId"`
	Properties         Properties `json:"properties"`
	PreviousProperties Properties `json:"previousProperties,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
	SourcePath         string     `json:"sourcePath"`
	SourceType         SourceType `json:"sourceType"`
	OperationType      string     `json:"operationType"`
}

// EntityDeleteEvent is emitted after an entity disappears.
type EntityDeleteEvent struct {
	EntityID      string     `json:"entityId"`
	Properties    Properties `json:"properties"`
	Timestamp     time.Time  `json:"timestamp"`
	SourcePath    string     `json:"sourcePath"`
	SourceType    SourceType `json:"sourceType"`
	OperationType string     `json:"operationType"`
}

// BatchOperationEvent is emitted exactly once per batch, listing only the
// operations that succeeded.
type BatchOperationEvent struct {
	Operations    []BatchOperation `json:"operations"`
	Timestamp     time.Time        `json:"timestamp"`
	SourcePath    string           `json:"sourcePath,omitempty"`
	OperationType string           `json:"operationType"`
}

// BatchOperation is one mutate call inside a batch.
type BatchOperation struct {
	Type       string          `json:"type"` // OpCreate, OpUpdate or OpDelete
	EntityID   string          `json:"entityId"`
	Properties Properties      `json:"properties,omitempty"`
	Metadata   *EntityMetadata `json:"metadata,omitempty"` // required for creates
}

// BatchResult reports a batch per-operation. Success is the conjunction of
// the individual results; partial failure is never silently dropped.
type BatchResult struct {
	Success bool
	Results []OpResult
}
