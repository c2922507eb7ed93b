package pollstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/datepoll/core/logger"
)

//go:embed migrations
var migrations embed.FS

// Migrations returns the migration files for driver ("postgres" or "sqlite3").
func Migrations(driver string) (fs.FS, error) {
	sub, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return nil, err
	}
	if _, err := fs.ReadDir(sub, "."); err != nil {
		return nil, fmt.Errorf("pollstore: no migrations for driver %q", driver)
	}
	return sub, nil
}

// SQL is a Store backed by sqlx. Queries use ? placeholders rebound per driver.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQL wraps an open, migrated database.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, now: time.Now}
}

type pollRow struct {
	ID        string    `db:"id"`
	ChatID    int64     `db:"chat_id"`
	MessageID int       `db:"message_id"`
	CreatorID int64     `db:"creator_id"`
	Title     string    `db:"title"`
	Dates     string    `db:"dates"`
	Options   string    `db:"options"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toRow(p Poll) (pollRow, error) {
	dates, err := json.Marshal(p.Dates)
	if err != nil {
		return pollRow{}, err
	}
	options, err := json.Marshal(p.Options)
	if err != nil {
		return pollRow{}, err
	}
	return pollRow{
		ID:        p.ID,
		ChatID:    p.ChatID,
		MessageID: p.MessageID,
		CreatorID: p.CreatorID,
		Title:     p.Title,
		Dates:     string(dates),
		Options:   string(options),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}, nil
}

func (r pollRow) poll() (Poll, error) {
	p := Poll{
		ID:        r.ID,
		ChatID:    r.ChatID,
		MessageID: r.MessageID,
		CreatorID: r.CreatorID,
		Title:     r.Title,
		Status:    Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Dates), &p.Dates); err != nil {
		return Poll{}, fmt.Errorf("decode dates: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Options), &p.Options); err != nil {
		return Poll{}, fmt.Errorf("decode options: %w", err)
	}
	return p, nil
}

const upsertPoll = `INSERT INTO polls (id, chat_id, message_id, creator_id, title, dates, options, status, created_at, updated_at)
VALUES (:id, :chat_id, :message_id, :creator_id, :title, :dates, :options, :status, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	message_id = excluded.message_id,
	title = excluded.title,
	dates = excluded.dates,
	options = excluded.options,
	status = excluded.status,
	updated_at = excluded.updated_at`

const selectPoll = `SELECT id, chat_id, message_id, creator_id, title, dates, options, status, created_at, updated_at FROM polls`

// Save inserts or replaces p.
func (s *SQL) Save(ctx context.Context, p Poll) error {
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusOpen
	}
	row, err := toRow(p)
	if err != nil {
		return fmt.Errorf("pollstore: encode: %w", err)
	}
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, upsertPoll, row); err != nil {
		return fmt.Errorf("pollstore: save: %w", err)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.poll.save",
		slog.String("poll_id", p.ID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Get returns the poll with id.
func (s *SQL) Get(ctx context.Context, id string) (Poll, error) {
	if !ValidID(id) {
		return Poll{}, ErrNotFound
	}
	var row pollRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectPoll+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Poll{}, ErrNotFound
	}
	if err != nil {
		return Poll{}, fmt.Errorf("pollstore: get: %w", err)
	}
	return row.poll()
}

// Transition moves poll id from one status to another in a single UPDATE.
func (s *SQL) Transition(ctx context.Context, id string, from, to Status) error {
	if !ValidID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE polls SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		string(to), s.now().UTC(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("pollstore: transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pollstore: transition: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

// ListByCreator returns the creator's polls, newest first.
func (s *SQL) ListByCreator(ctx context.Context, creatorID int64, limit int) ([]Poll, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []pollRow
	q := s.db.Rebind(selectPoll + ` WHERE creator_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, creatorID, limit); err != nil {
		return nil, fmt.Errorf("pollstore: list: %w", err)
	}
	out := make([]Poll, 0, len(rows))
	for _, r := range rows {
		p, err := r.poll()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
