// Package dashboard is the application layer between the chat front end and
// the store: it runs the startup load, applies every confirmed write to the
// cache and answers the queries the screens need.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tutorado/internal/cache"
	"tutorado/internal/gateway"
	"tutorado/internal/ids"
	"tutorado/internal/models"
	"tutorado/internal/store"
	"tutorado/pkg/logger"
)

const DefaultLoadTimeout = 20 * time.Second

var (
	ErrSelfDelete   = errors.New("não é possível excluir o próprio usuário")
	ErrForbidden    = errors.New("sem permissão para alterar este registro")
	ErrMissingField = errors.New("campo obrigatório não preenchido")
	ErrNotFound     = store.ErrNotFound

	ErrAlreadyStarted = errors.New("dashboard already started")
)

// Outcome tells how Start returned.
type Outcome int

const (
	Loaded Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	if o == TimedOut {
		return "timed_out"
	}
	return "loaded"
}

type Options struct {
	LoadTimeout time.Duration
	Now         func() time.Time
}

type Service struct {
	gw    *gateway.Gateway
	state *cache.State
	log   *zap.Logger

	loadTimeout time.Duration
	now         func() time.Time

	ready     chan struct{}
	readyOnce sync.Once
	started   atomic.Bool
	closed    atomic.Bool
}

func New(gw *gateway.Gateway, state *cache.State, log *zap.Logger, opts Options) *Service {
	s := &Service{
		gw:          gw,
		state:       state,
		log:         logger.OrNop(log),
		loadTimeout: opts.LoadTimeout,
		now:         opts.Now,
		ready:       make(chan struct{}),
	}
	if s.loadTimeout <= 0 {
		s.loadTimeout = DefaultLoadTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start runs the bulk load and waits for it at most LoadTimeout. On timeout
// it returns TimedOut while the load carries on; its result still lands in
// the cache unless the service has been closed by then. Apart from
// ErrAlreadyStarted the returned error only reports load failures: the
// service stays usable with whatever collections did load.
func (s *Service) Start(ctx context.Context) (Outcome, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Loaded, ErrAlreadyStarted
	}

	done := make(chan gateway.Snapshot, 1)
	go func() {
		snap := s.gw.LoadAll(context.WithoutCancel(ctx))
		if s.closed.Load() {
			s.log.Info("discarding load result after close")
			return
		}
		s.state.Load(snap)
		s.readyOnce.Do(func() { close(s.ready) })
		done <- snap
	}()

	timer := time.NewTimer(s.loadTimeout)
	defer timer.Stop()

	select {
	case snap := <-done:
		return Loaded, snap.Err()
	case <-timer.C:
		s.log.Warn("initial load is slow, continuing without data",
			zap.Duration("timeout", s.loadTimeout))
		return TimedOut, nil
	case <-ctx.Done():
		return TimedOut, ctx.Err()
	}
}

// Ready is closed once the startup load has been applied to the cache.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Close stops a late load from being applied and waits for pending access
// log writes.
func (s *Service) Close() {
	s.closed.Store(true)
	s.gw.Wait()
}

func (s *Service) Users() []models.User {
	return s.state.Users()
}

func (s *Service) Students() []models.StudentSummary {
	return s.state.Students()
}

func (s *Service) Attendances() []models.Attendance {
	return s.state.Attendances()
}

func (s *Service) User(id string) (models.User, bool) {
	return s.state.User(id)
}

func (s *Service) Student(id string) (models.StudentSummary, bool) {
	return s.state.Student(id)
}

func (s *Service) Attendance(id string) (models.Attendance, bool) {
	return s.state.Attendance(id)
}

// SaveStudent creates the student when it has no id yet, otherwise replaces
// the whole record.
func (s *Service) SaveStudent(ctx context.Context, d models.StudentDetail) (models.StudentDetail, error) {
	if d.ID == "" {
		d.ID = ids.NextStudentID(s.state.StudentIDs())
	}
	saved, err := s.gw.SaveStudent(ctx, d)
	if err != nil {
		return models.StudentDetail{}, err
	}
	s.state.UpsertStudent(saved)
	return saved, nil
}

// OpenStudent fetches the full record of a student. When the fetch fails
// the best copy the cache holds is returned instead.
func (s *Service) OpenStudent(ctx context.Context, id string) (models.StudentDetail, error) {
	full, err := s.gw.Student(ctx, id)
	if err == nil {
		s.state.ReplaceStudent(full)
		return full, nil
	}
	if d, ok := s.state.StudentDetail(id); ok {
		return d, nil
	}
	if sum, ok := s.state.Student(id); ok {
		return models.NewStudentDetail(sum), nil
	}
	return models.StudentDetail{}, err
}

func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	if err := s.gw.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.state.DeleteStudent(id)
	return nil
}

// SaveUser numbers a new user after the role prefix.
func (s *Service) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = ids.NextUserID(u.Role, s.state.UserIDs())
	}
	saved, err := s.gw.SaveUser(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	s.state.UpsertUser(saved)
	return saved, nil
}

func (s *Service) OpenUser(ctx context.Context, id string) (models.User, error) {
	full, err := s.gw.User(ctx, id)
	if err == nil {
		s.state.ReplaceUser(full)
		return full, nil
	}
	if u, ok := s.state.User(id); ok {
		return u, nil
	}
	return models.User{}, err
}

// DeleteUser refuses to remove the acting user.
func (s *Service) DeleteUser(ctx context.Context, actor models.User, id string) error {
	if actor.ID == id {
		return ErrSelfDelete
	}
	if err := s.gw.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.state.DeleteUser(id)
	return nil
}

// AttendanceForm is what the user fills in. An empty ID creates a record.
type AttendanceForm struct {
	ID        string
	StudentID string
	Date      string
	Dimension models.Dimension
	Subject   string
	Notes     string
}

// CanEdit reports whether actor may change or delete a.
func CanEdit(actor models.User, a models.Attendance) bool {
	return actor.IsAdmin() || a.TutorID == actor.ID
}

// SaveAttendance creates or edits an attendance. A new record is attributed
// to actor; an edit never changes who logged it.
func (s *Service) SaveAttendance(ctx context.Context, actor models.User, form AttendanceForm) (models.Attendance, error) {
	if err := form.validate(); err != nil {
		return models.Attendance{}, err
	}
	if form.Dimension == "" {
		form.Dimension = models.DefaultDimension
	}
	student, known := s.state.Student(form.StudentID)

	var rec models.Attendance
	if form.ID != "" {
		original, ok := s.state.Attendance(form.ID)
		if !ok {
			return models.Attendance{}, fmt.Errorf("attendance %s: %w", form.ID, ErrNotFound)
		}
		if !CanEdit(actor, original) {
			return models.Attendance{}, ErrForbidden
		}
		rec = original
		if known {
			rec.StudentName = student.Name
		}
	} else {
		rec = models.Attendance{
			ID:          s.newAttendanceID(),
			StudentName: models.UnknownStudent,
			TutorID:     actor.ID,
			TutorName:   actor.Name,
		}
		if known {
			rec.StudentName = student.Name
		}
	}
	rec.StudentID = form.StudentID
	rec.Date = form.Date
	rec.Dimension = form.Dimension
	rec.Subject = form.Subject
	rec.Notes = form.Notes

	saved, err := s.gw.SaveAttendance(ctx, rec)
	if err != nil {
		return models.Attendance{}, err
	}
	s.state.UpsertAttendance(saved)
	return saved, nil
}

func (s *Service) DeleteAttendance(ctx context.Context, actor models.User, id string) error {
	a, ok := s.state.Attendance(id)
	if !ok {
		return fmt.Errorf("attendance %s: %w", id, ErrNotFound)
	}
	if !CanEdit(actor, a) {
		return ErrForbidden
	}
	if err := s.gw.DeleteAttendance(ctx, id); err != nil {
		return err
	}
	s.state.DeleteAttendance(id)
	return nil
}

// LogAccess forwards to the gateway so the service can serve as the session
// access logger.
func (s *Service) LogAccess(u models.User, action models.AccessAction) {
	s.gw.LogAccess(u, action)
}

func (s *Service) newAttendanceID() string {
	taken := make(map[string]struct{})
	for _, id := range s.state.AttendanceIDs() {
		taken[id] = struct{}{}
	}
	t := s.now()
	for {
		id := ids.AttendanceID(t)
		if _, ok := taken[id]; !ok {
			return id
		}
		t = t.Add(time.Millisecond)
	}
}

func (f AttendanceForm) validate() error {
	switch {
	case strings.TrimSpace(f.StudentID) == "":
		return fmt.Errorf("%w: aluno", ErrMissingField)
	case strings.TrimSpace(f.Date) == "":
		return fmt.Errorf("%w: data", ErrMissingField)
	case strings.TrimSpace(f.Subject) == "":
		return fmt.Errorf("%w: assunto", ErrMissingField)
	}
	return nil
}
