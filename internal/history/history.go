// Package history implements the Conversation History & Turn Logger:
// an append-only per-agent Turn sequence, rendered back
// into the next prompt as an alternating transcript, with an on-disk
// JSON record of every turn for replay and debugging.
package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// MaxTranscriptChars bounds the rendered transcript handed back to the
// model. When the full history would exceed it, Render preserves the
// first turn (carries the task brief) and as many of the most recent
// turns as fit, dropping the middle.
const MaxTranscriptChars = 60_000

// History is the append-only turn sequence for one agent invocation.
type History struct {
	mu      sync.Mutex
	agentID string
	turns   []models.Turn
}

// New creates an empty History for one agent.
func New(agentID string) *History {
	return &History{agentID: agentID}
}

// Append records a completed Turn.
func (h *History) Append(turn models.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turn.AgentID = h.agentID
	turn.TurnIndex = len(h.turns) + 1
	h.turns = append(h.turns, turn)
}

// Turns returns a copy of every recorded turn in order.
func (h *History) Turns() []models.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports how many turns have been recorded.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Render formats the transcript as alternating assistant/user blocks
// for inclusion in the agent's next prompt: each turn's raw model text,
// followed by the environment's results for the actions it took. When the
// whole transcript exceeds MaxTranscriptChars, middle turns are dropped
// (see renderTruncated).
func (h *History) Render() string {
	h.mu.Lock()
	turns := make([]models.Turn, len(h.turns))
	copy(turns, h.turns)
	h.mu.Unlock()

	rendered := renderTurns(turns)
	if len(rendered) <= MaxTranscriptChars {
		return rendered
	}
	return renderTruncated(turns)
}

func renderTurns(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		renderTurn(&b, t)
	}
	return b.String()
}

func renderTurn(b *strings.Builder, t models.Turn) {
	fmt.Fprintf(b, "## Turn %d\n\n%s\n\n", t.TurnIndex, t.RawResponse)
	if len(t.Results) == 0 {
		return
	}
	b.WriteString("### Results\n")
	for i, r := range t.Results {
		if r.OK {
			fmt.Fprintf(b, "%d. ok: %s\n", i+1, r.Payload)
		} else {
			fmt.Fprintf(b, "%d. error[%s]: %s\n", i+1, r.ErrorKind, r.ErrorMessage)
		}
	}
	b.WriteString("\n")
}

// renderTruncated keeps the first turn (the task brief almost always
// lives there) plus as many trailing turns as fit under the size bound,
// noting how many were dropped in between.
func renderTruncated(turns []models.Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var first strings.Builder
	renderTurn(&first, turns[0])

	var tailBlocks []string
	budget := MaxTranscriptChars - first.Len()
	for i := len(turns) - 1; i > 0; i-- {
		var candidate strings.Builder
		renderTurn(&candidate, turns[i])
		if candidate.Len() > budget {
			break
		}
		tailBlocks = append(tailBlocks, candidate.String())
		budget -= candidate.Len()
	}

	dropped := len(turns) - 1 - len(tailBlocks)
	var b strings.Builder
	b.WriteString(first.String())
	if dropped > 0 {
		fmt.Fprintf(&b, "[... %d earlier turns omitted ...]\n\n", dropped)
	}
	// tailBlocks was collected newest-first; reverse into chronological order.
	for i := len(tailBlocks) - 1; i >= 0; i-- {
		b.WriteString(tailBlocks[i])
	}
	return b.String()
}
