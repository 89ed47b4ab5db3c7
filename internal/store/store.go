// Package store defines the contract of the remote table store that holds
// users, students and attendances.
package store

import (
	"context"
	"errors"

	"tutorado/internal/codec"
)

const (
	TableUsers       = "users"
	TableStudents    = "students"
	TableAttendances = "attendances"
	TableAccessLogs  = "access_logs"
)

// KeyColumn is the primary key and upsert conflict key of every table.
const KeyColumn = "id"

var (
	ErrNotFound      = errors.New("record not found")
	ErrNotConfigured = errors.New("remote store not configured")
)

type Order struct {
	Column     string
	Descending bool
}

// Backend is one table store. Implementations must be safe for concurrent use.
type Backend interface {
	// Select returns every row of table restricted to columns.
	Select(ctx context.Context, table string, columns []string, order Order) ([]codec.Row, error)
	// Get returns the row whose id matches, or ErrNotFound.
	Get(ctx context.Context, table string, columns []string, id string) (codec.Row, error)
	// Upsert inserts row or replaces the whole row with the same id, and
	// returns the row as stored.
	Upsert(ctx context.Context, table string, row codec.Row) (codec.Row, error)
	Delete(ctx context.Context, table string, id string) error
	Insert(ctx context.Context, table string, row codec.Row) error
}

// Offline is the backend used when no store is configured. Every call fails
// with ErrNotConfigured.
type Offline struct{}

func (Offline) Select(context.Context, string, []string, Order) ([]codec.Row, error) {
	return nil, ErrNotConfigured
}

func (Offline) Get(context.Context, string, []string, string) (codec.Row, error) {
	return nil, ErrNotConfigured
}

func (Offline) Upsert(context.Context, string, codec.Row) (codec.Row, error) {
	return nil, ErrNotConfigured
}

func (Offline) Delete(context.Context, string, string) error {
	return ErrNotConfigured
}

func (Offline) Insert(context.Context, string, codec.Row) error {
	return ErrNotConfigured
}
