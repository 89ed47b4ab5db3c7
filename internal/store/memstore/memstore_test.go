package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorado/internal/codec"
	"tutorado/internal/store"
)

func TestUpsertReplacesWholeRowInPlace(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Upsert(ctx, store.TableUsers, codec.Row{"id": "TUT001", "name": "Carlos", "photo": "x"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, store.TableUsers, codec.Row{"id": "TUT002", "name": "Ana"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, store.TableUsers, codec.Row{"id": "TUT001", "name": "Carlos Santos"})
	require.NoError(t, err)

	rows := s.Rows(store.TableUsers)
	require.Len(t, rows, 2)
	assert.Equal(t, "Carlos Santos", rows[0]["name"])
	_, hasPhoto := rows[0]["photo"]
	assert.False(t, hasPhoto, "upsert replaces the whole row")
}

func TestSelectProjectsAndOrders(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, r := range []codec.Row{
		{"id": "ATD1", "date": "2024-01-01", "notes": "a"},
		{"id": "ATD2", "date": "2024-03-01", "notes": "b"},
		{"id": "ATD3", "date": "2024-02-01", "notes": "c"},
	} {
		_, err := s.Upsert(ctx, store.TableAttendances, r)
		require.NoError(t, err)
	}

	rows, err := s.Select(ctx, store.TableAttendances, []string{"id", "date"}, store.Order{Column: "date", Descending: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ATD2", rows[0]["id"])
	assert.Equal(t, "ATD1", rows[2]["id"])
	_, hasNotes := rows[0]["notes"]
	assert.False(t, hasNotes)
}

func TestGetAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Upsert(ctx, store.TableStudents, codec.Row{"id": "ALU001"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, store.TableStudents, "ALU001"))
	require.NoError(t, s.Delete(ctx, store.TableStudents, "ALU001"))

	_, err = s.Get(ctx, store.TableStudents, nil, "ALU001")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFailureInjection(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Fail(store.TableStudents, boom)

	_, err := s.Select(context.Background(), store.TableStudents, nil, store.Order{})
	assert.ErrorIs(t, err, boom)

	s.Fail(store.TableStudents, nil)
	_, err = s.Select(context.Background(), store.TableStudents, nil, store.Order{})
	assert.NoError(t, err)
}

func TestDelayHonoursContext(t *testing.T) {
	s := New()
	s.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Select(ctx, store.TableUsers, nil, store.Order{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInsertAssignsSerialID(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(context.Background(), store.TableAccessLogs, codec.Row{"user_id": "ADM001"}))
	rows := s.Rows(store.TableAccessLogs)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["id"])
}

func TestSeed(t *testing.T) {
	s := New()
	s.Seed(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))

	assert.Len(t, s.Rows(store.TableUsers), 3)
	students := s.Rows(store.TableStudents)
	require.Len(t, students, 10)
	assert.Equal(t, "2024-06-05", students[0]["birth_date"])
	assert.Equal(t, "TUT002", students[9]["tutor_id"])
	assert.Len(t, s.Rows(store.TableAttendances), 3)
}
