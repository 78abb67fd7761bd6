package llm

import (
	"fmt"
	"strings"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Transcript renders the turn log as plain text, one line per turn: user
// turns as "User:", assistant turns prefixed with the model tag.
func Transcript(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			fmt.Fprintf(&b, "User: %s\n", t.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(&b, "%s: %s\n", t.Model, t.Content)
		}
	}
	return b.String()
}

// BuildInstruction builds the phase-dependent prompt for one model call.
// In the opinion phase models are instructed not to mention each other; in
// free talk they may hand off the floor with a single trailing @-mention.
func BuildInstruction(model domain.ModelID, phase domain.DiscussionPhase, turns []domain.Turn) string {
	var others []string
	for _, m := range domain.AllModels() {
		if m != model {
			others = append(others, string(m))
		}
	}
	otherModels := strings.Join(others, ", ")

	var instructions string
	if phase == domain.PhaseOpinion {
		instructions = fmt.Sprintf(`You are %s.
You are taking part in a discussion together with %s.

Keep in mind:
- Give only your own honest opinion
- Do not mention or question the other AIs
- Write at most 3-4 paragraphs`, model, otherModels)
	} else {
		instructions = fmt.Sprintf(`You are %s.
You are discussing together with %s.

Keep in mind:
- React to the previous statements (agree, rebut, or add)
- When referring to another AI, use its name only (e.g. "as anthropic said", "like gpt's point")
- Use @ only at the end of your reply, and only to ask a question (e.g. "@gpt, what do you think about this?")
- Do not address several AIs at once
- Write at most 3-4 paragraphs`, model, otherModels)
	}

	return fmt.Sprintf(`%s

<conversation so far>
%s`, instructions, Transcript(turns))
}

// BuildTitlePrompt builds the prompt for the one-shot thread title call.
func BuildTitlePrompt(turns []domain.Turn) string {
	return fmt.Sprintf(`Write a short title for the following conversation (at most a few words).
Output only the title, with no extra explanation.

<conversation>
%s`, Transcript(turns))
}
