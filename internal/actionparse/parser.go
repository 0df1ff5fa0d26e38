// Package actionparse implements the Action Parser: a
// two-phase, decoupled parse from raw LLM text into typed Action variants.
// Phase one extracts top-level XML elements by tag name; phase two parses
// each element's body as an indentation-based structured payload and
// validates it against the tag's schema. The phases are kept in separate
// files so either can be swapped without touching the other.
package actionparse

import (
	"regexp"
	"strings"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// knownTags is the full set of tags either agent kind may emit.
var knownTags = map[models.ActionTag]bool{
	models.TagTaskCreate:      true,
	models.TagLaunchSubagent:  true,
	models.TagAddContext:      true,
	models.TagFinish:          true,
	models.TagReasoning:       true,
	models.TagFile:            true,
	models.TagSearch:          true,
	models.TagBash:            true,
	models.TagTodo:            true,
	models.TagScratchpad:      true,
	models.TagReport:          true,
	models.TagWriteTempScript: true,
}

// tagElement matches any top-level "<tag>...</tag>" block, DOTALL so the
// body may span multiple lines. Nesting of the same tag inside itself is
// not supported, matching the flat element model of the action surface.
var tagElement = regexp.MustCompile(`(?s)<([a-zA-Z_][a-zA-Z0-9_]*)>(.*?)</([a-zA-Z_][a-zA-Z0-9_]*)>`)

// ParsedItem is one document-order slot produced by Parse: either a
// successfully validated Action, or an ExecutionResult describing why that
// slot failed to parse or validate. Exactly one of the two is non-nil.
type ParsedItem struct {
	Action *models.Action
	Error  *models.ExecutionResult
}

// Parse extracts actions from raw LLM text in document order. Unknown tags
// and malformed bodies are non-fatal: they become an Error slot so the
// emitting agent can self-correct on its next turn.
func Parse(text string) []ParsedItem {
	matches := tagElement.FindAllStringSubmatchIndex(text, -1)
	items := make([]ParsedItem, 0, len(matches))

	for _, m := range matches {
		openTag := text[m[2]:m[3]]
		body := text[m[4]:m[5]]
		closeTag := text[m[6]:m[7]]

		if openTag != closeTag {
			items = append(items, errItem(models.ErrorKindParseError,
				"mismatched open/close tag: <"+openTag+"> ... </"+closeTag+">"))
			continue
		}

		tag := models.ActionTag(openTag)
		if !knownTags[tag] {
			items = append(items, errItem(models.ErrorKindParseError, "unknown action tag: "+openTag))
			continue
		}

		payload, err := parseBody(body)
		if err != nil {
			items = append(items, errItem(models.ErrorKindParseError, "malformed payload in <"+openTag+">: "+err.Error()))
			continue
		}

		action, verr := validate(tag, payload)
		if verr != nil {
			items = append(items, errItem(models.ErrorKindValidationError, verr.Error()))
			continue
		}

		items = append(items, ParsedItem{Action: action})
	}

	return items
}

func errItem(kind models.ErrorKind, message string) ParsedItem {
	res := models.Err(kind, message)
	return ParsedItem{Error: &res}
}

// dedent strips the common leading whitespace shared by every non-blank
// line, so a body indented to match its surrounding prose still parses as
// a YAML mapping rooted at column 0.
func dedent(body string) string {
	lines := strings.Split(body, "\n")

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return body
	}

	for i, line := range lines {
		if len(line) >= minIndent {
			lines[i] = line[minIndent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
