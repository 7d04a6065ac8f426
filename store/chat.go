package store

// Chat is one durable conversation owned by a user. The title starts as the
// default welcome title and is replaced with a truncated prefix of the first
// user message once one arrives.
type Chat struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	CreatedTs int64
	UpdatedTs int64
}

type FindChat struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	// Limit caps the number of returned chats. Results are always ordered by
	// creation time descending, so Limit=1 yields the most recent chat.
	Limit *int
}

type UpdateChat struct {
	ID        int32
	Title     *string
	UpdatedTs *int64
}

type DeleteChat struct {
	ID int32
}
