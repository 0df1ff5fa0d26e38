package models

// ActionTag is the XML element name that identifies an Action variant.
type ActionTag string

const (
	TagTaskCreate      ActionTag = "task_create"
	TagLaunchSubagent  ActionTag = "launch_subagent"
	TagAddContext      ActionTag = "add_context"
	TagFinish          ActionTag = "finish"
	TagReasoning       ActionTag = "reasoning"
	TagFile            ActionTag = "file"
	TagSearch          ActionTag = "search"
	TagBash            ActionTag = "bash"
	TagTodo            ActionTag = "todo"
	TagScratchpad      ActionTag = "scratchpad"
	TagReport          ActionTag = "report"
	TagWriteTempScript ActionTag = "write_temp_script"
)

// orchestratorOnlyTags and subagentOnlyTags record the capability split between agent kinds: the dispatcher (via IsOrchestratorOnly) and the
// orchestrator runtime (via IsSubagentOnly) consult these to raise CapabilityViolation before a misrouted action reaches its handler.
var orchestratorOnlyTags = map[ActionTag]bool{
	TagTaskCreate:     true,
	TagLaunchSubagent: true,
	TagAddContext:     true,
	TagFinish:         true,
}

var subagentOnlyTags = map[ActionTag]bool{
	TagFile:            true,
	TagSearch:          true,
	TagBash:            true,
	TagTodo:            true,
	TagScratchpad:      true,
	TagReport:          true,
	TagWriteTempScript: true,
}

// IsOrchestratorOnly reports whether tag may only be emitted by the
// Orchestrator.
func (t ActionTag) IsOrchestratorOnly() bool { return orchestratorOnlyTags[t] }

// IsSubagentOnly reports whether tag may only be emitted by a Subagent.
func (t ActionTag) IsSubagentOnly() bool { return subagentOnlyTags[t] }

// Action is a closed tagged union: exactly one of the variant fields below
// is non-nil, selected by Tag. This replaces the pydantic-style dynamic
// action models named in the redesign guidance with one parser per tag.
type Action struct {
	Tag ActionTag

	TaskCreate      *TaskCreateAction
	LaunchSubagent  *LaunchSubagentAction
	AddContext      *AddContextAction
	Finish          *FinishAction
	Reasoning       *ReasoningAction
	File            *FileAction
	Search          *SearchAction
	Bash            *BashAction
	Todo            *TodoAction
	Scratchpad      *ScratchpadAction
	Report          *ReportAction
	WriteTempScript *WriteTempScriptAction
}

// TaskCreateAction creates a new pending Task in the Hub.
type TaskCreateAction struct {
	AgentType        AgentType
	Title            string
	Description      string
	ContextRefs      []string
	ContextBootstrap []ContextBootstrap
}

// LaunchSubagentAction runs a pending Task's Subagent to completion.
type LaunchSubagentAction struct {
	TaskID string
}

// AddContextAction writes an orchestrator-authored Context directly.
type AddContextAction struct {
	ID      string
	Content string
}

// FinishAction terminates the Orchestrator's top-level loop.
type FinishAction struct {
	Message string
}

// ReasoningAction carries free-form chain-of-thought text that both agent
// kinds may emit; it has no side effect beyond appearing in the transcript.
type ReasoningAction struct {
	Text string
}

// FileOpKind enumerates the File Manager operations.
type FileOpKind string

const (
	FileOpRead      FileOpKind = "read"
	FileOpWrite     FileOpKind = "write"
	FileOpEdit      FileOpKind = "edit"
	FileOpMultiEdit FileOpKind = "multi_edit"
	FileOpMetadata  FileOpKind = "metadata"
)

// FileEdit is one edit within a multi_edit action.
type FileEdit struct {
	OldString  string
	NewString  string
	ReplaceAll bool
}

// FileAction dispatches to the File Manager.
type FileAction struct {
	Op FileOpKind

	Path string // read, write, edit, multi_edit

	Offset int // read
	Limit  int // read

	Content string // write

	OldString  string // edit
	NewString  string // edit
	ReplaceAll bool   // edit

	Edits []FileEdit // multi_edit

	Paths []string // metadata
}

// SearchOpKind enumerates the Search Manager operations.
type SearchOpKind string

const (
	SearchOpGrep SearchOpKind = "grep"
	SearchOpGlob SearchOpKind = "glob"
)

// SearchAction dispatches to the Search Manager.
type SearchAction struct {
	Op      SearchOpKind
	Pattern string
	Path    string
	Include string // grep filename filter
}

// BashAction runs a command in the Sandbox Executor.
type BashAction struct {
	Command     string
	Block       bool
	TimeoutSecs int
	Cwd         string
}

// TodoOpKind enumerates the per-agent todo list operations.
type TodoOpKind string

const (
	TodoOpAdd      TodoOpKind = "add"
	TodoOpComplete TodoOpKind = "complete"
	TodoOpDelete   TodoOpKind = "delete"
	TodoOpViewAll  TodoOpKind = "view_all"
)

// TodoAction dispatches to the per-agent State's todo list.
type TodoAction struct {
	Op   TodoOpKind
	ID   string // complete, delete
	Text string // add
}

// ScratchpadAction appends a note to the per-agent State's scratchpad.
type ScratchpadAction struct {
	Note string
}

// ReportAction is the single structured output a Subagent may emit.
type ReportAction struct {
	Contexts    []ReportContext
	Comments    string
	FinalStatus FinalStatus
}

// WriteTempScriptAction is the Explorer's restricted write escape hatch.
type WriteTempScriptAction struct {
	Path    string
	Content string
}
