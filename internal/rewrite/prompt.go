package rewrite

import (
	"fmt"
	"strings"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
)

// systemPromptTemplate is filled with the user instruction and the known
// term list. The model must answer with a single JSON object so the
// response survives machine parsing.
const systemPromptTemplate = `You are a transcript editor. Apply the following instruction to the transcript segment the user provides:

%s

Rules:
- Apply ONLY the instruction above. Do not make unrelated edits.
- Preserve the speaker's meaning and voice.
- If the instruction does not apply to this segment, return the text unchanged.
%s
Respond with ONLY a JSON object of the form {"rewritten_text": "..."} and nothing else.`

// buildSystemPrompt renders the system prompt for one action. canonicals
// are the dictionary's canonical spellings; an empty list omits the term
// section entirely.
func buildSystemPrompt(instruction string, canonicals []string) string {
	termSection := ""
	if len(canonicals) > 0 {
		termSection = fmt.Sprintf(
			"- Use these exact spellings for known terms: %s.\n",
			strings.Join(canonicals, ", "),
		)
	}
	return fmt.Sprintf(systemPromptTemplate, strings.TrimSpace(instruction), termSection)
}

// buildUserMessage renders the per-segment user message. related holds
// semantically similar segments supplied as read-only context.
func buildUserMessage(seg transcript.Segment, related []string) string {
	var b strings.Builder
	if len(related) > 0 {
		b.WriteString("Related segments from the same transcript (context only, do not edit):\n")
		for _, r := range related {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if seg.Speaker != "" {
		fmt.Fprintf(&b, "Speaker: %s\n", seg.Speaker)
	}
	b.WriteString("Segment to edit:\n")
	b.WriteString(seg.Text)
	return b.String()
}
