package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

const errDuplicateEntry = 1062

// ParticipantRepository implements store.ParticipantRegistry on the participants table.
type ParticipantRepository struct {
	db    *sql.DB
	clock clock.Clock
}

func NewParticipantRepository(db *sql.DB, clk clock.Clock) *ParticipantRepository {
	return &ParticipantRepository{db: db, clock: clk}
}

// Register relies on the primary key to reject a second insert of the same name.
func (r *ParticipantRepository) Register(ctx context.Context, name string) (model.Participant, error) {
	now := r.clock.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx, "INSERT INTO participants (name, last_seen) VALUES (?, ?)", name, now)
	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &myErr) && myErr.Number == errDuplicateEntry:
		return model.Participant{}, fmt.Errorf("%w: participant %q already present", model.ErrConflict, name)
	case err != nil:
		return model.Participant{}, store.Unavailable("register", err)
	}
	return model.Participant{Name: name, LastSeen: now}, nil
}

func (r *ParticipantRepository) Heartbeat(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE participants SET last_seen = ? WHERE name = ?",
		r.clock.Now().UTC().Truncate(time.Microsecond), name)
	if err != nil {
		return store.Unavailable("heartbeat", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("heartbeat", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: participant %q", model.ErrNotFound, name)
	}
	return nil
}

func (r *ParticipantRepository) List(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, last_seen FROM participants ORDER BY name")
	if err != nil {
		return nil, store.Unavailable("list participants", err)
	}
	defer rows.Close()

	list := []model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.Name, &p.LastSeen); err != nil {
			return nil, store.Unavailable("list participants", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("list participants", err)
	}
	return list, nil
}

func (r *ParticipantRepository) IsPresent(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM participants WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return false, store.Unavailable("is present", err)
	}
	return exists, nil
}

// EvictStaleBefore locks the stale rows, deletes exactly those rows and
// returns them, all in one transaction. A concurrent heartbeat on a locked row
// waits and then finds nothing to update.
func (r *ParticipantRepository) EvictStaleBefore(ctx context.Context, threshold time.Time) ([]model.Participant, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, store.Unavailable("evict", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT name, last_seen FROM participants WHERE last_seen < ? FOR UPDATE", threshold.UTC())
	if err != nil {
		return nil, store.Unavailable("evict", err)
	}
	var stale []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.Name, &p.LastSeen); err != nil {
			rows.Close()
			return nil, store.Unavailable("evict", err)
		}
		stale = append(stale, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("evict", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	args := lo.Map(stale, func(p model.Participant, _ int) any { return p.Name })
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stale)), ",")
	if _, err := tx.ExecContext(ctx, "DELETE FROM participants WHERE name IN ("+placeholders+")", args...); err != nil {
		return nil, store.Unavailable("evict", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, store.Unavailable("evict", err)
	}
	return stale, nil
}
