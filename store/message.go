package store

// Sender indicates which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one transcript entry of a durable chat, ordered within the
// chat by (created_ts, id). A message is immutable once delivered; the one
// exception is the pending AI placeholder, which is replaced in place (same
// row, same position) via UpdateChatMessage when the completion resolves.
type ChatMessage struct {
	ID        int64
	ChatID    int32
	Sender    Sender
	Text      string
	Pending   bool
	CreatedTs int64
}

type FindChatMessage struct {
	ID     *int64
	ChatID *int32
}

// UpdateChatMessage performs the addressed replace of a transcript entry:
// the row keeps its id and ordering position, only text and pending change.
type UpdateChatMessage struct {
	ID      int64
	Text    *string
	Pending *bool
}

type DeleteChatMessage struct {
	ID int64
}
