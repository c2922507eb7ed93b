// Package pollstore archives published polls so their author can later tally
// or cancel them.
package pollstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for an unknown poll id.
	ErrNotFound = errors.New("pollstore: poll not found")
	// ErrStatusConflict is returned by Transition when the poll is no longer
	// in the expected status.
	ErrStatusConflict = errors.New("pollstore: poll status changed")
)

// Status is the lifecycle state of a published poll.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Poll is an archived poll.
type Poll struct {
	ID        string
	ChatID    int64
	MessageID int
	CreatorID int64
	Title     string
	Dates     []string
	Options   []string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists polls.
type Store interface {
	Save(ctx context.Context, p Poll) error
	Get(ctx context.Context, id string) (Poll, error)
	// Transition moves poll id from status from to status to atomically.
	Transition(ctx context.Context, id string, from, to Status) error
	ListByCreator(ctx context.Context, creatorID int64, limit int) ([]Poll, error)
}

// NewID returns a fresh poll id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
