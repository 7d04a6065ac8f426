package store

// UserPreferences is the learner profile the tutor persona is built from.
type UserPreferences struct {
	UserID     int32
	Name       string
	ClassLevel string // Beginner, Intermediate, Advanced
	Subjects   string
	Interests  string
	UpdatedTs  int64
}

type UpsertUserPreferences struct {
	UserID     int32
	Name       *string
	ClassLevel *string
	Subjects   *string
	Interests  *string
	UpdatedTs  int64
}

type FindUserPreferences struct {
	UserID int32
}
