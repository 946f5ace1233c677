package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

// MessageRepository implements store.MessageStore on the messages table.
// seq (AUTO_INCREMENT) is the append order.
type MessageRepository struct {
	db    *sql.DB
	clock clock.Clock
}

func NewMessageRepository(db *sql.DB, clk clock.Clock) *MessageRepository {
	return &MessageRepository{db: db, clock: clk}
}

func (r *MessageRepository) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	msg.ID = uuid.NewString()
	msg.Time = r.clock.Now().Format(clock.DisplayLayout)

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, from_name, to_name, text, type, time) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.From, msg.To, msg.Text, string(msg.Type), msg.Time)
	if err != nil {
		return model.Message{}, store.Unavailable("append", err)
	}
	return msg, nil
}

const visibleWhere = "WHERE from_name = ? OR to_name = ? OR to_name = ?"

func (r *MessageRepository) QueryVisible(ctx context.Context, viewer string, limit *int) ([]model.Message, error) {
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}

	query := "SELECT id, from_name, to_name, text, type, time FROM messages " + visibleWhere + " ORDER BY seq"
	args := []any{viewer, model.BroadcastTarget, viewer}
	if limit != nil {
		query = "SELECT id, from_name, to_name, text, type, time FROM messages " + visibleWhere + " ORDER BY seq DESC LIMIT ?"
		args = append(args, *limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Unavailable("query messages", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &m.Type, &m.Time); err != nil {
			return nil, store.Unavailable("query messages", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("query messages", err)
	}
	if limit != nil {
		slices.Reverse(msgs)
	}
	return msgs, nil
}

// DeleteByID deletes only when requester is the author. When nothing was
// deleted, a probe tells a missing id apart from a foreign one. Two racing
// owners cannot both delete: InnoDB serializes the row delete.
func (r *MessageRepository) DeleteByID(ctx context.Context, id, requester string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ? AND from_name = ?", id, requester)
	if err != nil {
		return store.Unavailable("delete message", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("delete message", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM messages WHERE id = ?)", id).Scan(&exists); err != nil {
		return store.Unavailable("delete message", err)
	}
	if !exists {
		return fmt.Errorf("%w: message %q", model.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %q is not the author of message %q", model.ErrUnauthorized, requester, id)
}
