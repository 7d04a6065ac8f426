package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/vedyxlabs/vedyx/store"
)

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	stmt := `
		INSERT INTO chat_message (chat_id, sender, text, pending, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.ChatID,
		create.Sender,
		create.Text,
		create.Pending,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create chat message")
	}
	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.ChatID != nil {
		where, args = append(where, "chat_id = ?"), append(args, *find.ChatID)
	}

	// Append order within a chat is (created_ts, id); id breaks ties for
	// messages created in the same millisecond.
	query := `SELECT id, chat_id, sender, text, pending, created_ts
		FROM chat_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Text, &m.Pending, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat message")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chat messages")
	}
	return list, nil
}

func (d *DB) UpdateChatMessage(ctx context.Context, update *store.UpdateChatMessage) (*store.ChatMessage, error) {
	set, args := []string{}, []any{}

	if update.Text != nil {
		set, args = append(set, "text = ?"), append(args, *update.Text)
	}
	if update.Pending != nil {
		set, args = append(set, "pending = ?"), append(args, *update.Pending)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE chat_message SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, chat_id, sender, text, pending, created_ts`
	m := &store.ChatMessage{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&m.ID, &m.ChatID, &m.Sender, &m.Text, &m.Pending, &m.CreatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("chat message not found")
		}
		return nil, errors.Wrap(err, "failed to update chat message")
	}
	return m, nil
}

func (d *DB) DeleteChatMessage(ctx context.Context, delete *store.DeleteChatMessage) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM chat_message WHERE id = ?`, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete chat message")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.New("chat message not found")
	}
	return nil
}
