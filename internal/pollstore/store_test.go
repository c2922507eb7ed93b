package pollstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/datepoll/core/database"
)

func newSQLite(t *testing.T) *SQL {
	t.Helper()
	cfg := coredatabase.Config{
		Driver: coredatabase.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	}
	require.NoError(t, cfg.Normalize())
	db, err := coredatabase.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	src, err := Migrations(coredatabase.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, coredatabase.RunMigrations(db, cfg, src))
	return NewSQL(db)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": newSQLite(t),
	}
}

func samplePoll(creator int64, title string) Poll {
	return Poll{
		ID:        NewID(),
		ChatID:    -100123,
		MessageID: 77,
		CreatorID: creator,
		Title:     title,
		Dates:     []string{"2025-10-10", "2025-10-20"},
		Options:   []string{"10 октября (Пт)", "20 октября (Пн)"},
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p := samplePoll(1, "Raid?")
			require.NoError(t, s.Save(ctx, p))

			got, err := s.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.Title, got.Title)
			assert.Equal(t, p.Options, got.Options)
			assert.Equal(t, p.Dates, got.Dates)
			assert.Equal(t, p.MessageID, got.MessageID)
			assert.Equal(t, p.ChatID, got.ChatID)
			assert.Equal(t, StatusOpen, got.Status)
			assert.False(t, got.CreatedAt.IsZero())

			require.NoError(t, s.Transition(ctx, p.ID, StatusOpen, StatusClosed))
			assert.ErrorIs(t, s.Transition(ctx, p.ID, StatusOpen, StatusCancelled), ErrStatusConflict)
			got, err = s.Get(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusClosed, got.Status)

			_, err = s.Get(ctx, NewID())
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Transition(ctx, NewID(), StatusOpen, StatusCancelled), ErrNotFound)
			_, err = s.Get(ctx, "not-a-uuid")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListByCreatorNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
			for i, title := range []string{"first", "second", "third"} {
				p := samplePoll(7, title)
				p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
				require.NoError(t, s.Save(ctx, p))
			}
			require.NoError(t, s.Save(ctx, samplePoll(8, "other")))

			list, err := s.ListByCreator(ctx, 7, 2)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "third", list[0].Title)
			assert.Equal(t, "second", list[1].Title)
		})
	}
}

func TestMigrationsPerDriver(t *testing.T) {
	for _, d := range []string{coredatabase.DriverPostgres, coredatabase.DriverSQLite} {
		_, err := Migrations(d)
		assert.NoError(t, err, d)
	}
	_, err := Migrations("mysql")
	assert.Error(t, err)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := samplePoll(1, "x")
	require.NoError(t, m.Save(ctx, p))
	got, _ := m.Get(ctx, p.ID)
	got.Options[0] = "changed"
	again, _ := m.Get(ctx, p.ID)
	assert.Equal(t, "10 октября (Пт)", again.Options[0])
}
