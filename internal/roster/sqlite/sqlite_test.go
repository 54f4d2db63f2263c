package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tzgrid/internal/model"
	"tzgrid/internal/roster"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	t.Run("CreatePerson assigns id, position and timestamp", func(t *testing.T) {
		p := &model.Person{Name: "Alice", Timezone: "Europe/Paris"}
		require.NoError(t, store.CreatePerson(ctx, p))

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, 0, p.Position)
		assert.False(t, p.CreatedAt.IsZero())

		q := &model.Person{Name: "Bob", Timezone: "Asia/Tokyo"}
		require.NoError(t, store.CreatePerson(ctx, q))
		assert.Equal(t, 1, q.Position)
		assert.NotEqual(t, p.ID, q.ID)
	})

	t.Run("ListPeople keeps insertion order", func(t *testing.T) {
		people, err := store.ListPeople(ctx)
		require.NoError(t, err)
		require.Len(t, people, 2)
		assert.Equal(t, "Alice", people[0].Name)
		assert.Equal(t, "Bob", people[1].Name)
	})

	t.Run("RenamePerson leaves timezone alone", func(t *testing.T) {
		people, err := store.ListPeople(ctx)
		require.NoError(t, err)
		id := people[1].ID

		require.NoError(t, store.RenamePerson(ctx, id, "Robert"))
		got, err := store.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Robert", got.Name)
		assert.Equal(t, "Asia/Tokyo", got.Timezone)
		assert.Equal(t, people[1].CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	})

	t.Run("DeletePerson and not found", func(t *testing.T) {
		people, err := store.ListPeople(ctx)
		require.NoError(t, err)
		require.NoError(t, store.DeletePerson(ctx, people[0].ID))

		_, err = store.GetPerson(ctx, people[0].ID)
		assert.ErrorIs(t, err, roster.ErrNotFound)
		assert.ErrorIs(t, store.DeletePerson(ctx, people[0].ID), roster.ErrNotFound)
		assert.ErrorIs(t, store.RenamePerson(ctx, "missing", "x"), roster.ErrNotFound)

		// Positions keep growing after deletes.
		p := &model.Person{Name: "Carol", Timezone: "UTC"}
		require.NoError(t, store.CreatePerson(ctx, p))
		assert.Equal(t, 2, p.Position)
	})
}

func TestSQLiteStoreBase(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, ok, err := store.GetBase(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetBase(ctx, model.BaseContext{Timezone: "Asia/Seoul", Label: "Seoul"}))
	base, ok, err := store.GetBase(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.BaseContext{Timezone: "Asia/Seoul", Label: "Seoul"}, base)

	require.NoError(t, store.SetBase(ctx, model.BaseContext{Timezone: "UTC"}))
	base, _, err = store.GetBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.BaseContext{Timezone: "UTC"}, base)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.CreatePerson(ctx, &model.Person{Name: "Dana", Timezone: "America/Chicago"}))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	people, err := store.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Dana", people[0].Name)
}
