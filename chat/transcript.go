package chat

import (
	"github.com/pkg/errors"

	"github.com/vedyxlabs/vedyx/store"
)

// Message is one transcript entry. Delivered messages are immutable; the
// pending AI placeholder is the sole exception and is resolved exactly once
// through Transcript.ReplaceAt, keeping its position.
type Message struct {
	// ID is the durable row id for persisted messages, 0 for in-memory
	// guest messages.
	ID        int64        `json:"id,omitempty"`
	Sender    store.Sender `json:"sender"`
	Text      string       `json:"text"`
	Pending   bool         `json:"pending,omitempty"`
	CreatedTs int64        `json:"timestamp"`
}

// Transcript is the ordered message sequence of one conversation session.
// Entries are strictly append-ordered by send time; the placeholder-then-
// replace pattern keeps the AI reply at the position it was promised.
type Transcript struct {
	messages []Message
}

// Append adds a message at the end and returns its index.
func (t *Transcript) Append(m Message) int {
	t.messages = append(t.messages, m)
	return len(t.messages) - 1
}

// ReplaceAt resolves the entry at index with final text. This is an
// addressed replace: length and ordering are unchanged, only the entry's
// text and pending flag are.
func (t *Transcript) ReplaceAt(index int, text string) error {
	if index < 0 || index >= len(t.messages) {
		return errors.Errorf("transcript index %d out of range", index)
	}
	t.messages[index].Text = text
	t.messages[index].Pending = false
	return nil
}

// Messages returns a copy of the transcript entries.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of transcript entries.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Reset discards all entries. Used when an anonymous transcript is thrown
// away on sign-in.
func (t *Transcript) Reset() {
	t.messages = nil
}
