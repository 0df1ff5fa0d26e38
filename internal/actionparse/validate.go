package actionparse

import (
	"fmt"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// validate converts a parsed body payload into the typed Action variant for
// tag, enforcing each field's required-ness and enum membership. A field
// that is missing, empty where required, or not one of its enumerated
// values is a ValidationError, distinct from the ParseError raised for a
// body that wasn't well-formed structured text at all.
func validate(tag models.ActionTag, m map[string]any) (*models.Action, error) {
	switch tag {
	case models.TagTaskCreate:
		return validateTaskCreate(m)
	case models.TagLaunchSubagent:
		return validateLaunchSubagent(m)
	case models.TagAddContext:
		return validateAddContext(m)
	case models.TagFinish:
		return &models.Action{Tag: tag, Finish: &models.FinishAction{Message: strOr(m, "message", "")}}, nil
	case models.TagReasoning:
		return &models.Action{Tag: tag, Reasoning: &models.ReasoningAction{Text: strOr(m, "text", "")}}, nil
	case models.TagFile:
		return validateFile(m)
	case models.TagSearch:
		return validateSearch(m)
	case models.TagBash:
		return validateBash(m)
	case models.TagTodo:
		return validateTodo(m)
	case models.TagScratchpad:
		return &models.Action{Tag: tag, Scratchpad: &models.ScratchpadAction{Note: strOr(m, "note", "")}}, nil
	case models.TagReport:
		return validateReport(m)
	case models.TagWriteTempScript:
		return validateWriteTempScript(m)
	default:
		return nil, fmt.Errorf("no validator registered for tag %q", tag)
	}
}

func validateTaskCreate(m map[string]any) (*models.Action, error) {
	agentType := models.AgentType(strOr(m, "agent_type", ""))
	if !agentType.Valid() {
		return nil, fmt.Errorf("task_create.agent_type must be %q or %q, got %q",
			models.AgentTypeExplorer, models.AgentTypeCoder, agentType)
	}
	title, ok := str(m, "title")
	if !ok || title == "" {
		return nil, fmt.Errorf("task_create.title is required")
	}
	description, ok := str(m, "description")
	if !ok || description == "" {
		return nil, fmt.Errorf("task_create.description is required")
	}

	var bootstrap []models.ContextBootstrap
	for _, entry := range mapSlice(m, "context_bootstrap") {
		path, _ := str(entry, "path")
		if path == "" {
			return nil, fmt.Errorf("task_create.context_bootstrap entries require a path")
		}
		reason, _ := str(entry, "reason")
		bootstrap = append(bootstrap, models.ContextBootstrap{Path: path, Reason: reason})
	}

	return &models.Action{Tag: models.TagTaskCreate, TaskCreate: &models.TaskCreateAction{
		AgentType:        agentType,
		Title:            title,
		Description:      description,
		ContextRefs:      strSlice(m, "context_refs"),
		ContextBootstrap: bootstrap,
	}}, nil
}

func validateLaunchSubagent(m map[string]any) (*models.Action, error) {
	taskID, ok := str(m, "task_id")
	if !ok || taskID == "" {
		return nil, fmt.Errorf("launch_subagent.task_id is required")
	}
	return &models.Action{Tag: models.TagLaunchSubagent, LaunchSubagent: &models.LaunchSubagentAction{TaskID: taskID}}, nil
}

func validateAddContext(m map[string]any) (*models.Action, error) {
	id, ok := str(m, "id")
	if !ok || id == "" {
		return nil, fmt.Errorf("add_context.id is required")
	}
	content, ok := str(m, "content")
	if !ok || content == "" {
		return nil, fmt.Errorf("add_context.content is required")
	}
	return &models.Action{Tag: models.TagAddContext, AddContext: &models.AddContextAction{ID: id, Content: content}}, nil
}

func validateFile(m map[string]any) (*models.Action, error) {
	op := models.FileOpKind(strOr(m, "op", ""))
	switch op {
	case models.FileOpRead:
		path, ok := str(m, "path")
		if !ok || path == "" {
			return nil, fmt.Errorf("file.read.path is required")
		}
		return &models.Action{Tag: models.TagFile, File: &models.FileAction{
			Op: op, Path: path, Offset: intOr(m, "offset", 0), Limit: intOr(m, "limit", 0),
		}}, nil
	case models.FileOpWrite:
		path, ok := str(m, "path")
		if !ok || path == "" {
			return nil, fmt.Errorf("file.write.path is required")
		}
		content, _ := str(m, "content")
		return &models.Action{Tag: models.TagFile, File: &models.FileAction{Op: op, Path: path, Content: content}}, nil
	case models.FileOpEdit:
		path, ok := str(m, "path")
		if !ok || path == "" {
			return nil, fmt.Errorf("file.edit.path is required")
		}
		oldString, ok := str(m, "old_string")
		if !ok || oldString == "" {
			return nil, fmt.Errorf("file.edit.old_string is required")
		}
		newString, _ := str(m, "new_string")
		return &models.Action{Tag: models.TagFile, File: &models.FileAction{
			Op: op, Path: path, OldString: oldString, NewString: newString,
			ReplaceAll: boolOr(m, "replace_all", false),
		}}, nil
	case models.FileOpMultiEdit:
		path, ok := str(m, "path")
		if !ok || path == "" {
			return nil, fmt.Errorf("file.multi_edit.path is required")
		}
		rawEdits := mapSlice(m, "edits")
		if len(rawEdits) == 0 {
			return nil, fmt.Errorf("file.multi_edit.edits must have at least one entry")
		}
		edits := make([]models.FileEdit, 0, len(rawEdits))
		for i, e := range rawEdits {
			oldString, ok := str(e, "old_string")
			if !ok || oldString == "" {
				return nil, fmt.Errorf("file.multi_edit.edits[%d].old_string is required", i)
			}
			newString, _ := str(e, "new_string")
			edits = append(edits, models.FileEdit{
				OldString:  oldString,
				NewString:  newString,
				ReplaceAll: boolOr(e, "replace_all", false),
			})
		}
		return &models.Action{Tag: models.TagFile, File: &models.FileAction{Op: op, Path: path, Edits: edits}}, nil
	case models.FileOpMetadata:
		paths := strSlice(m, "paths")
		if len(paths) == 0 {
			return nil, fmt.Errorf("file.metadata.paths must have at least one entry")
		}
		return &models.Action{Tag: models.TagFile, File: &models.FileAction{Op: op, Paths: paths}}, nil
	default:
		return nil, fmt.Errorf("file.op must be one of read/write/edit/multi_edit/metadata, got %q", op)
	}
}

func validateSearch(m map[string]any) (*models.Action, error) {
	op := models.SearchOpKind(strOr(m, "op", ""))
	switch op {
	case models.SearchOpGrep:
		pattern, ok := str(m, "pattern")
		if !ok || pattern == "" {
			return nil, fmt.Errorf("search.grep.pattern is required")
		}
		return &models.Action{Tag: models.TagSearch, Search: &models.SearchAction{
			Op: op, Pattern: pattern, Path: strOr(m, "path", ""), Include: strOr(m, "include", ""),
		}}, nil
	case models.SearchOpGlob:
		pattern, ok := str(m, "pattern")
		if !ok || pattern == "" {
			return nil, fmt.Errorf("search.glob.pattern is required")
		}
		return &models.Action{Tag: models.TagSearch, Search: &models.SearchAction{
			Op: op, Pattern: pattern, Path: strOr(m, "path", ""),
		}}, nil
	default:
		return nil, fmt.Errorf("search.op must be %q or %q, got %q", models.SearchOpGrep, models.SearchOpGlob, op)
	}
}

func validateBash(m map[string]any) (*models.Action, error) {
	command, ok := str(m, "command")
	if !ok || command == "" {
		return nil, fmt.Errorf("bash.command is required")
	}
	return &models.Action{Tag: models.TagBash, Bash: &models.BashAction{
		Command:     command,
		Block:       boolOr(m, "block", true),
		TimeoutSecs: intOr(m, "timeout_secs", 0),
		Cwd:         strOr(m, "cwd", ""),
	}}, nil
}

func validateTodo(m map[string]any) (*models.Action, error) {
	op := models.TodoOpKind(strOr(m, "op", ""))
	switch op {
	case models.TodoOpAdd:
		text, ok := str(m, "text")
		if !ok || text == "" {
			return nil, fmt.Errorf("todo.add.text is required")
		}
		return &models.Action{Tag: models.TagTodo, Todo: &models.TodoAction{Op: op, Text: text}}, nil
	case models.TodoOpComplete, models.TodoOpDelete:
		id, ok := str(m, "id")
		if !ok || id == "" {
			return nil, fmt.Errorf("todo.%s.id is required", op)
		}
		return &models.Action{Tag: models.TagTodo, Todo: &models.TodoAction{Op: op, ID: id}}, nil
	case models.TodoOpViewAll:
		return &models.Action{Tag: models.TagTodo, Todo: &models.TodoAction{Op: op}}, nil
	default:
		return nil, fmt.Errorf("todo.op must be one of add/complete/delete/view_all, got %q", op)
	}
}

func validateReport(m map[string]any) (*models.Action, error) {
	finalStatus := models.FinalStatus(strOr(m, "final_status", ""))
	if finalStatus == models.FinalStatusForced {
		return nil, fmt.Errorf("report.final_status %q may only be synthesized by the runtime, not emitted by an agent", finalStatus)
	}
	if !finalStatus.Valid() {
		return nil, fmt.Errorf("report.final_status must be %q or %q, got %q",
			models.FinalStatusCompleted, models.FinalStatusFailed, finalStatus)
	}

	var contexts []models.ReportContext
	for _, entry := range mapSlice(m, "contexts") {
		id, ok := str(entry, "id")
		if !ok || id == "" {
			return nil, fmt.Errorf("report.contexts entries require an id")
		}
		content, _ := str(entry, "content")
		contexts = append(contexts, models.ReportContext{ID: id, Content: content})
	}

	return &models.Action{Tag: models.TagReport, Report: &models.ReportAction{
		Contexts:    contexts,
		Comments:    strOr(m, "comments", ""),
		FinalStatus: finalStatus,
	}}, nil
}

func validateWriteTempScript(m map[string]any) (*models.Action, error) {
	path, ok := str(m, "path")
	if !ok || path == "" {
		return nil, fmt.Errorf("write_temp_script.path is required")
	}
	content, ok := str(m, "content")
	if !ok || content == "" {
		return nil, fmt.Errorf("write_temp_script.content is required")
	}
	return &models.Action{Tag: models.TagWriteTempScript, WriteTempScript: &models.WriteTempScriptAction{
		Path: path, Content: content,
	}}, nil
}
