// Package gateway issues the reads and writes of users, students and
// attendances against the table store, converting rows through the codec.
//
// Every failure is logged here and returned; callers treat an error as
// "the operation did not happen". Nothing is retried.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tutorado/internal/codec"
	"tutorado/internal/models"
	"tutorado/internal/store"
	"tutorado/pkg/logger"
)

const (
	maxUserAgent            = 250
	defaultAccessLogTimeout = 10 * time.Second
)

// Snapshot is the result of the startup load. A collection whose load failed
// is empty and has its error set.
type Snapshot struct {
	Users       []models.User
	Students    []models.StudentSummary
	Attendances []models.Attendance

	UsersErr       error
	StudentsErr    error
	AttendancesErr error
}

// Err joins the per-collection failures.
func (s Snapshot) Err() error {
	return errors.Join(s.UsersErr, s.StudentsErr, s.AttendancesErr)
}

type Options struct {
	// UserAgent is recorded with every access log row.
	UserAgent        string
	AccessLogTimeout time.Duration
	Now              func() time.Time
}

type Gateway struct {
	backend   store.Backend
	log       *zap.Logger
	userAgent string
	logTTL    time.Duration
	now       func() time.Time
	pending   sync.WaitGroup
}

func New(backend store.Backend, log *zap.Logger, opts Options) *Gateway {
	g := &Gateway{
		backend:   backend,
		log:       logger.OrNop(log),
		userAgent: opts.UserAgent,
		logTTL:    opts.AccessLogTimeout,
		now:       opts.Now,
	}
	if len(g.userAgent) > maxUserAgent {
		g.userAgent = g.userAgent[:maxUserAgent]
	}
	if g.logTTL <= 0 {
		g.logTTL = defaultAccessLogTimeout
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// LoadAll fetches the three collections concurrently and returns once all of
// them have settled. Students come back in their reduced projection.
func (g *Gateway) LoadAll(ctx context.Context) Snapshot {
	var snap Snapshot
	var eg errgroup.Group

	eg.Go(func() error {
		snap.Users, snap.UsersErr = selectAll(ctx, g, store.TableUsers, codec.Users, store.Order{Column: "id"})
		return nil
	})
	eg.Go(func() error {
		snap.Students, snap.StudentsErr = selectAll(ctx, g, store.TableStudents, codec.StudentSummaries, store.Order{Column: "id"})
		return nil
	})
	eg.Go(func() error {
		snap.Attendances, snap.AttendancesErr = selectAll(ctx, g, store.TableAttendances, codec.Attendances, store.Order{Column: "date", Descending: true})
		return nil
	})
	_ = eg.Wait()

	g.log.Info("initial load settled",
		zap.Int("users", len(snap.Users)),
		zap.Int("students", len(snap.Students)),
		zap.Int("attendances", len(snap.Attendances)),
		zap.NamedError("load_error", snap.Err()),
	)
	return snap
}

// Student fetches the full projection of one student.
func (g *Gateway) Student(ctx context.Context, id string) (models.StudentDetail, error) {
	return getOne(ctx, g, store.TableStudents, codec.Students, id)
}

// User fetches the full projection of one user.
func (g *Gateway) User(ctx context.Context, id string) (models.User, error) {
	return getOne(ctx, g, store.TableUsers, codec.Users, id)
}

func (g *Gateway) SaveStudent(ctx context.Context, s models.StudentDetail) (models.StudentDetail, error) {
	return upsert(ctx, g, store.TableStudents, codec.Students, s, s.ID)
}

func (g *Gateway) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	return upsert(ctx, g, store.TableUsers, codec.Users, u, u.ID)
}

func (g *Gateway) SaveAttendance(ctx context.Context, a models.Attendance) (models.Attendance, error) {
	return upsert(ctx, g, store.TableAttendances, codec.Attendances, a, a.ID)
}

func (g *Gateway) DeleteStudent(ctx context.Context, id string) error {
	return g.delete(ctx, store.TableStudents, id)
}

func (g *Gateway) DeleteUser(ctx context.Context, id string) error {
	return g.delete(ctx, store.TableUsers, id)
}

func (g *Gateway) DeleteAttendance(ctx context.Context, id string) error {
	return g.delete(ctx, store.TableAttendances, id)
}

// LogAccess records a login or logout without waiting for the store. A
// failed write is only logged.
func (g *Gateway) LogAccess(user models.User, action models.AccessAction) {
	row := codec.Row{
		"user_id":    user.ID,
		"user_name":  user.Name,
		"role":       string(user.Role),
		"action":     string(action),
		"logged_at":  g.now().UTC().Format(time.RFC3339),
		"user_agent": g.userAgent,
	}

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.logTTL)
		defer cancel()

		if err := g.backend.Insert(ctx, store.TableAccessLogs, row); err != nil {
			g.log.Warn("failed to record access log",
				zap.String(logger.FieldUserID, user.ID),
				zap.String(logger.FieldAction, string(action)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every in-flight access log write has finished.
func (g *Gateway) Wait() {
	g.pending.Wait()
}

func (g *Gateway) delete(ctx context.Context, table, id string) error {
	if err := g.backend.Delete(ctx, table, id); err != nil {
		g.fail("delete", table, id, err)
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return nil
}

func (g *Gateway) fail(op, table, id string, err error) {
	fields := []zap.Field{
		zap.String(logger.FieldOperation, op),
		zap.String(logger.FieldCollection, table),
		zap.Error(err),
	}
	if id != "" {
		fields = append(fields, zap.String(logger.FieldEntityID, id))
	}
	g.log.Error("store operation failed", fields...)
}

func selectAll[T any](ctx context.Context, g *Gateway, table string, c codec.Codec[T], order store.Order) ([]T, error) {
	rows, err := g.backend.Select(ctx, table, c.Columns(), order)
	if err != nil {
		g.fail("load", table, "", err)
		return []T{}, fmt.Errorf("load %s: %w", table, err)
	}
	return c.DecodeAll(rows), nil
}

func getOne[T any](ctx context.Context, g *Gateway, table string, c codec.Codec[T], id string) (T, error) {
	row, err := g.backend.Get(ctx, table, c.Columns(), id)
	if err != nil {
		var zero T
		// a missing row is an ordinary answer, not a store failure
		if !errors.Is(err, store.ErrNotFound) {
			g.fail("get", table, id, err)
		}
		return zero, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	return c.Decode(row), nil
}

func upsert[T any](ctx context.Context, g *Gateway, table string, c codec.Codec[T], v T, id string) (T, error) {
	row, err := g.backend.Upsert(ctx, table, c.Encode(v))
	if err != nil {
		var zero T
		g.fail("upsert", table, id, err)
		return zero, fmt.Errorf("save %s %s: %w", table, id, err)
	}
	return c.Decode(row), nil
}
