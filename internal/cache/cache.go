// Package cache holds the in-memory copies of users, students and
// attendances that every screen renders from once the startup load is done.
package cache

import (
	"sync"

	"tutorado/internal/gateway"
	"tutorado/internal/models"
)

// collection is an ordered list of records keyed by id.
type collection[T any] struct {
	items []T
	id    func(*T) string
}

func (c *collection[T]) index(id string) int {
	for i := range c.items {
		if c.id(&c.items[i]) == id {
			return i
		}
	}
	return -1
}

// upsert replaces the record with the same id in place, or adds v at the
// front or back of the list.
func (c *collection[T]) upsert(v T, prepend bool) {
	if i := c.index(c.id(&v)); i >= 0 {
		c.items[i] = v
		return
	}
	if prepend {
		c.items = append([]T{v}, c.items...)
		return
	}
	c.items = append(c.items, v)
}

// replace swaps in v only when a record with its id is already held.
func (c *collection[T]) replace(v T) bool {
	i := c.index(c.id(&v))
	if i < 0 {
		return false
	}
	c.items[i] = v
	return true
}

func (c *collection[T]) remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

func (c *collection[T]) get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *collection[T]) snapshot() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) ids() []string {
	out := make([]string, len(c.items))
	for i := range c.items {
		out[i] = c.id(&c.items[i])
	}
	return out
}

// State is safe for concurrent use. Writes from different goroutines apply
// in the order they reach the lock.
type State struct {
	mu          sync.RWMutex
	users       collection[models.User]
	students    collection[models.StudentSummary]
	details     map[string]models.StudentDetail
	attendances collection[models.Attendance]
	loaded      bool
}

func New() *State {
	return &State{
		users:       collection[models.User]{id: func(u *models.User) string { return u.ID }},
		students:    collection[models.StudentSummary]{id: func(s *models.StudentSummary) string { return s.ID }},
		attendances: collection[models.Attendance]{id: func(a *models.Attendance) string { return a.ID }},
		details:     make(map[string]models.StudentDetail),
	}
}

// Load installs the startup snapshot. A collection whose load failed keeps
// whatever the cache already held.
func (s *State) Load(snap gateway.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.UsersErr == nil {
		s.users.items = append([]models.User(nil), snap.Users...)
	}
	if snap.StudentsErr == nil {
		s.students.items = append([]models.StudentSummary(nil), snap.Students...)
		s.details = make(map[string]models.StudentDetail)
	}
	if snap.AttendancesErr == nil {
		s.attendances.items = append([]models.Attendance(nil), snap.Attendances...)
	}
	s.loaded = true
}

// Loaded reports whether a startup snapshot has been installed.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *State) UpsertUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.upsert(u, false)
}

// UpsertStudent stores the record returned by a save as both the summary
// and the full record of that student.
func (s *State) UpsertStudent(d models.StudentDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students.upsert(d.Summary(), false)
	s.details[d.ID] = d
}

// UpsertAttendance keeps attendances newest first: a new record goes to the front.
func (s *State) UpsertAttendance(a models.Attendance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendances.upsert(a, true)
}

// ReplaceUser swaps in a freshly fetched user. It is a no-op when the user
// is no longer cached.
func (s *State) ReplaceUser(u models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.replace(u)
}

// ReplaceStudent swaps in a freshly fetched full record.
func (s *State) ReplaceStudent(d models.StudentDetail) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.students.replace(d.Summary()) {
		return false
	}
	s.details[d.ID] = d
	return true
}

func (s *State) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.remove(id)
}

func (s *State) DeleteStudent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students.remove(id)
	delete(s.details, id)
}

func (s *State) DeleteAttendance(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendances.remove(id)
}

func (s *State) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.snapshot()
}

func (s *State) Students() []models.StudentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.students.snapshot()
}

func (s *State) Attendances() []models.Attendance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attendances.snapshot()
}

func (s *State) User(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

func (s *State) Student(id string) (models.StudentSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.students.get(id)
}

// StudentDetail returns the full record when it has been fetched since the
// last load.
func (s *State) StudentDetail(id string) (models.StudentDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.details[id]
	return d, ok
}

func (s *State) Attendance(id string) (models.Attendance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attendances.get(id)
}

func (s *State) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.ids()
}

func (s *State) StudentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.students.ids()
}

func (s *State) AttendanceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attendances.ids()
}
