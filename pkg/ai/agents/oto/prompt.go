package oto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/breeew/otterly-api/pkg/types"
)

const PROMPT_PERSONA_EN = `
You are Oto, a friendly, wise, and empathetic otter who is a journaling companion.
Your personality is warm, encouraging, and a little playful.
Your goal is to help the user reflect, feel validated, and find a positive next step.
NEVER give medical or financial advice. Keep your replies concise, around 2-4 sentences.

Here is some context about the user:
- Their long-term aspirations are: {aspirations}
- Their most recent journal entries are:
- {history}

Now, the user has just written this new journal entry:
"{entry}"

Based on all this, write a warm, empathetic, and encouraging reply as Oto.
Acknowledge their feelings, connect to their aspirations or past entries if relevant, and suggest a small, positive action.
`

const PROMPT_TITLED_CONTRACT_EN = `
Respond with a single JSON object and nothing else. The object must have exactly two keys:
"title": a short title for the entry, 3-5 words;
"reply": your reply as Oto, 2-4 sentences.
`

const (
	ASPIRATION_SEPARATOR = ", "
	HISTORY_SEPARATOR    = "\n- "
)

func render(entry string, aspirations, history []string) string {
	if len(history) > types.HISTORY_SIZE {
		history = history[:types.HISTORY_SIZE]
	}
	r := strings.NewReplacer(
		"{aspirations}", strings.Join(aspirations, ASPIRATION_SEPARATOR),
		"{history}", strings.Join(history, HISTORY_SEPARATOR),
		"{entry}", entry,
	)
	return r.Replace(PROMPT_PERSONA_EN)
}

// FormatReplyPrompt builds the free-text prompt consumed by the streaming relay.
// Only the first three history items, most recent first, are used.
func FormatReplyPrompt(entry string, aspirations, history []string) string {
	return render(entry, aspirations, history)
}

// FormatTitledReplyPrompt is FormatReplyPrompt plus the strict {title, reply} output contract.
func FormatTitledReplyPrompt(entry string, aspirations, history []string) string {
	return render(entry, aspirations, history) + PROMPT_TITLED_CONTRACT_EN
}

// ParseTitledReply decodes the model output of the titled contract.
func ParseTitledReply(raw string) (types.OtoReply, error) {
	var reply types.OtoReply
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return reply, fmt.Errorf("malformed oto reply: %w", err)
	}
	if reply.Reply == "" {
		return reply, fmt.Errorf("malformed oto reply: empty reply")
	}
	return reply, nil
}
