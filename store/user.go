package store

// User is a registered visitor. Accounts are created either through
// email/password signup or through the Google credential exchange, in which
// case GoogleID carries the stable subject identifier from the ID token.
type User struct {
	ID           int32
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string // empty for Google-only accounts
	GoogleID     string // empty for password-only accounts
	CreatedTs    int64
	UpdatedTs    int64
}

type FindUser struct {
	ID       *int32
	Email    *string
	GoogleID *string
}

type UpdateUser struct {
	ID           int32
	DisplayName  *string
	PhotoURL     *string
	PasswordHash *string
	GoogleID     *string
	UpdatedTs    *int64
}

type DeleteUser struct {
	ID int32
}
