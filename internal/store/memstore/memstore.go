// Package memstore is an in-memory table store. It backs the "memory" store
// driver and stands in for the remote store in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tutorado/internal/codec"
	"tutorado/internal/store"
)

type table struct {
	rows  map[string]codec.Row
	order []string
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	fail   map[string]error
	delay  time.Duration
	serial int
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		tables: make(map[string]*table),
		fail:   make(map[string]error),
	}
}

// Fail makes every call touching table return err until cleared with a nil err.
func (s *Store) Fail(tableName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, tableName)
		return
	}
	s.fail[tableName] = err
}

// SetDelay holds every call for d before answering.
func (s *Store) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Rows returns a copy of every row of table in insertion order.
func (s *Store) Rows(tableName string) []codec.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tables[tableName]
	if t == nil {
		return nil
	}
	out := make([]codec.Row, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, cloneRow(t.rows[id], nil))
	}
	return out
}

func (s *Store) Select(ctx context.Context, tableName string, columns []string, order store.Order) ([]codec.Row, error) {
	if err := s.enter(ctx, tableName); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.tables[tableName]
	if t == nil {
		return []codec.Row{}, nil
	}
	out := make([]codec.Row, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, cloneRow(t.rows[id], columns))
	}
	if order.Column != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][order.Column]), fmt.Sprint(out[j][order.Column])
			if order.Descending {
				return a > b
			}
			return a < b
		})
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, tableName string, columns []string, id string) (codec.Row, error) {
	if err := s.enter(ctx, tableName); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.tables[tableName]
	if t == nil {
		return nil, store.ErrNotFound
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRow(row, columns), nil
}

func (s *Store) Upsert(ctx context.Context, tableName string, row codec.Row) (codec.Row, error) {
	if err := s.enter(ctx, tableName); err != nil {
		return nil, err
	}
	id, _ := row[store.KeyColumn].(string)
	if id == "" {
		return nil, fmt.Errorf("upsert into %s: missing %s", tableName, store.KeyColumn)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(tableName, id, row)
	return cloneRow(row, nil), nil
}

func (s *Store) Delete(ctx context.Context, tableName string, id string) error {
	if err := s.enter(ctx, tableName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableName]
	if t == nil {
		return nil
	}
	if _, ok := t.rows[id]; !ok {
		return nil
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Insert appends row, assigning a serial id when the row carries none.
func (s *Store) Insert(ctx context.Context, tableName string, row codec.Row) error {
	if err := s.enter(ctx, tableName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := row[store.KeyColumn].(string)
	if id == "" {
		s.serial++
		id = fmt.Sprintf("%d", s.serial)
		row = cloneRow(row, nil)
		row[store.KeyColumn] = id
	} else if t := s.tables[tableName]; t != nil {
		if _, exists := t.rows[id]; exists {
			return fmt.Errorf("insert into %s: duplicate id %s", tableName, id)
		}
	}
	s.put(tableName, id, row)
	return nil
}

func (s *Store) put(tableName, id string, row codec.Row) {
	t := s.tables[tableName]
	if t == nil {
		t = &table{rows: make(map[string]codec.Row)}
		s.tables[tableName] = t
	}
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = cloneRow(row, nil)
}

func (s *Store) enter(ctx context.Context, tableName string) error {
	s.mu.RLock()
	delay, err := s.delay, s.fail[tableName]
	s.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func cloneRow(row codec.Row, columns []string) codec.Row {
	if len(columns) == 0 {
		out := make(codec.Row, len(row))
		for k, v := range row {
			out[k] = cloneValue(v)
		}
		return out
	}
	out := make(codec.Row, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = cloneValue(v)
		}
	}
	return out
}

func cloneValue(v any) any {
	if l, ok := v.([]string); ok {
		out := make([]string, len(l))
		copy(out, l)
		return out
	}
	return v
}
