package chat

import (
	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/store"
)

// DefaultSystemPrompt is the fixed tutor persona instruction prefixed to
// every completion request.
const DefaultSystemPrompt = "You are Vedyx, a personalized AI tutor."

// BuildContext maps the trailing window of a transcript into the role-tagged
// message list the completion API expects, prefixed with the system
// instruction. Pending entries never enter the window, and at most window
// messages are included
// no matter how long the conversation is.
func BuildContext(systemPrompt string, messages []Message, window int) []llm.Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if window <= 0 {
		window = 5
	}

	resolved := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Pending {
			continue
		}
		resolved = append(resolved, m)
	}
	if len(resolved) > window {
		resolved = resolved[len(resolved)-window:]
	}

	out := make([]llm.Message, 0, len(resolved)+1)
	out = append(out, llm.SystemPrompt(systemPrompt))
	for _, m := range resolved {
		if m.Sender == store.SenderAI {
			out = append(out, llm.AssistantMessage(m.Text))
		} else {
			out = append(out, llm.UserMessage(m.Text))
		}
	}
	return out
}
