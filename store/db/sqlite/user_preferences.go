package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/vedyxlabs/vedyx/store"
)

func (d *DB) UpsertUserPreferences(ctx context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	// Load the current row first so partial upserts keep unspecified fields.
	current, err := d.GetUserPreferences(ctx, &store.FindUserPreferences{UserID: upsert.UserID})
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &store.UserPreferences{UserID: upsert.UserID}
	}
	if upsert.Name != nil {
		current.Name = *upsert.Name
	}
	if upsert.ClassLevel != nil {
		current.ClassLevel = *upsert.ClassLevel
	}
	if upsert.Subjects != nil {
		current.Subjects = *upsert.Subjects
	}
	if upsert.Interests != nil {
		current.Interests = *upsert.Interests
	}
	current.UpdatedTs = upsert.UpdatedTs

	stmt := `
		INSERT INTO user_preferences (user_id, name, class_level, subjects, interests, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			class_level = excluded.class_level,
			subjects = excluded.subjects,
			interests = excluded.interests,
			updated_ts = excluded.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		current.UserID,
		current.Name,
		current.ClassLevel,
		current.Subjects,
		current.Interests,
		current.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user preferences")
	}
	return current, nil
}

func (d *DB) GetUserPreferences(ctx context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error) {
	query := `SELECT user_id, name, class_level, subjects, interests, updated_ts
		FROM user_preferences
		WHERE user_id = ?`
	p := &store.UserPreferences{}
	err := d.db.QueryRowContext(ctx, query, find.UserID).Scan(
		&p.UserID, &p.Name, &p.ClassLevel, &p.Subjects, &p.Interests, &p.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user preferences")
	}
	return p, nil
}
