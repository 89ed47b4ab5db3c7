// Package session keeps track of who is logged in. The persisted record is a
// plain snapshot of the user: it carries no token, signature or expiry and
// trusting it is the same as trusting whoever can write it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tutorado/internal/models"
)

// Store persists at most one user snapshot.
type Store interface {
	// Get returns nil when nothing is stored.
	Get(ctx context.Context) (*models.User, error)
	// Set stores u, or clears the record when u is nil.
	Set(ctx context.Context, u *models.User) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu   sync.Mutex
	user *models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

func (s *MemoryStore) Set(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return nil
	}
	cp := *u
	s.user = &cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Set(ctx, nil)
}

// FileStore keeps the snapshot as a JSON file. A missing file means no session.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(dir, key string) *FileStore {
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

func (s *FileStore) Get(context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return decodeUser(data)
}

func (s *FileStore) Set(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u == nil {
		return s.remove()
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// decodeUser treats the literal "null" the same as an absent record.
func decodeUser(data []byte) (*models.User, error) {
	var u *models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return u, nil
}
