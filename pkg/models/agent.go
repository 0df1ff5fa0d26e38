// Package models holds the shared record types passed between the hub,
// the subagent runtime, and the orchestrator runtime.
package models

// AgentType distinguishes the two Subagent variants the Orchestrator can
// launch against a Task.
type AgentType string

const (
	// AgentTypeExplorer is the read-only Subagent variant.
	AgentTypeExplorer AgentType = "explorer"
	// AgentTypeCoder is the read-write Subagent variant.
	AgentTypeCoder AgentType = "coder"
)

// Valid returns true if the agent type is a known value.
func (a AgentType) Valid() bool {
	switch a {
	case AgentTypeExplorer, AgentTypeCoder:
		return true
	default:
		return false
	}
}

// Capabilities returns the capability set for this agent type, selected at
// Subagent construction rather than expressed as a subclass.
func (a AgentType) Capabilities() Capabilities {
	switch a {
	case AgentTypeCoder:
		return Capabilities{CanWrite: true, AllowsTempScript: true, MaxTurns: 25}
	default:
		return Capabilities{CanWrite: false, AllowsTempScript: true, MaxTurns: 15}
	}
}

// Capabilities is the single struct that replaces Explorer/Coder subclassing:
// a Subagent is constructed with a capability set rather than a type switch
// scattered through the runtime.
type Capabilities struct {
	// CanWrite permits file write/edit/multi_edit actions.
	CanWrite bool
	// AllowsTempScript permits the WriteTempScript escape hatch even when
	// CanWrite is false, restricted to TempRoot.
	AllowsTempScript bool
	// MaxTurns bounds the Subagent's turn loop before a forced Report.
	MaxTurns int
	// TempRoot is the directory WriteTempScript may write under. Empty means
	// the runtime default ("/tmp").
	TempRoot string
}
