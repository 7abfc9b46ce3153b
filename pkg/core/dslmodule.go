package core

// DSLModule describes how to edit one specific embedded table construct.
// It is generated once when the construct is first discovered and shared by
// every entity extracted from that construct. The descriptor is consumed as
// JSON by external LSP/runtime bridges.
type DSLModule struct {
	Version    int                     `json:"version"`
	EntityID   string                  `json:"entityId"`
	Operations map[string]DSLOperation `json:"operations"`
	Source     DSLSource               `json:"source"`
}

// DSLOperation names the handler applying one mutation to the construct.
type DSLOperation struct {
	Handler string   `json:"handler"`
	Params  []string `json:"params"`
}

// DSLSource records how the construct is recognized in source text.
type DSLSource struct {
	Type    SourceType `json:"type"`
	Pattern string     `json:"pattern"`
}

// NewDSLModule builds the descriptor for a table construct addressed by
// entityID, recognized by the given pattern.
func NewDSLModule(entityID, pattern string) *DSLModule {
	return &DSLModule{
		Version:  1,
		EntityID: entityID,
		Operations: map[string]DSLOperation{
			"updateEntity": {Handler: "updateTableRow", Params: []string{"entityId", "properties"}},
			"createEntity": {Handler: "appendTableRow", Params: []string{"entityId", "properties"}},
			"deleteEntity": {Handler: "removeTableRow", Params: []string{"entityId"}},
		},
		Source: DSLSource{
			Type:    SourceConstruct,
			Pattern: pattern,
		},
	}
}
