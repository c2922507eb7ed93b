package pollstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	polls map[string]Poll
	now   func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{polls: make(map[string]Poll), now: time.Now}
}

func clonePoll(p Poll) Poll {
	p.Dates = slices.Clone(p.Dates)
	p.Options = slices.Clone(p.Options)
	return p
}

// Save inserts or replaces p.
func (m *Memory) Save(_ context.Context, p Poll) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	p.UpdatedAt = m.now()
	if p.Status == "" {
		p.Status = StatusOpen
	}
	m.mu.Lock()
	m.polls[p.ID] = clonePoll(p)
	m.mu.Unlock()
	return nil
}

// Get returns the poll with id.
func (m *Memory) Get(_ context.Context, id string) (Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.polls[id]
	if !ok {
		return Poll{}, ErrNotFound
	}
	return clonePoll(p), nil
}

// Transition moves poll id from one status to another.
func (m *Memory) Transition(_ context.Context, id string, from, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status != from {
		return ErrStatusConflict
	}
	p.Status = to
	p.UpdatedAt = m.now()
	m.polls[id] = p
	return nil
}

// ListByCreator returns the creator's polls, newest first.
func (m *Memory) ListByCreator(_ context.Context, creatorID int64, limit int) ([]Poll, error) {
	m.mu.RLock()
	var out []Poll
	for _, p := range m.polls {
		if p.CreatorID == creatorID {
			out = append(out, clonePoll(p))
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
