package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tutorado/internal/models"
	"tutorado/pkg/logger"
)

var (
	ErrUserNotFound  = errors.New("usuário não encontrado")
	ErrWrongPassword = errors.New("senha incorreta")
)

// EmergencyIdentifier always logs in as an administrator when it matches no user.
const EmergencyIdentifier = "ADM001"

// AccessLogger receives login and logout events. It must not block.
type AccessLogger interface {
	LogAccess(user models.User, action models.AccessAction)
}

// EmergencyAdmin is the identity used when no administrator is loaded.
func EmergencyAdmin() models.User {
	return models.User{ID: EmergencyIdentifier, Name: "Administrador", Role: models.RoleAdmin}
}

// Manager is the two-state login machine of one client: anonymous, or
// authenticated as a user.
//
// None of this is a security boundary. Passwords are compared in plain text,
// a name fragment is enough to pick a user, and the emergency paths skip
// the password entirely.
type Manager struct {
	store  Store
	access AccessLogger
	log    *zap.Logger

	mu      sync.RWMutex
	current *models.User
}

func NewManager(store Store, access AccessLogger, log *zap.Logger) *Manager {
	return &Manager{store: store, access: access, log: logger.OrNop(log)}
}

// Login authenticates against the loaded users. Both inputs are trimmed.
func (m *Manager) Login(ctx context.Context, users []models.User, identifier, password string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)
	password = strings.TrimSpace(password)

	// store unreachable: let anyone in as administrator
	if len(users) == 0 {
		m.log.Warn("no users loaded, emergency login")
		return m.authenticate(ctx, EmergencyAdmin())
	}

	found, ok := match(users, identifier)
	if !ok {
		if identifier == "" || identifier == EmergencyIdentifier {
			return m.authenticate(ctx, fallbackAdmin(users))
		}
		return models.User{}, ErrUserNotFound
	}

	if found.HasPassword() && *found.Password != password {
		m.log.Debug("login rejected", zap.String(logger.FieldUserID, found.ID))
		return models.User{}, ErrWrongPassword
	}
	return m.authenticate(ctx, found)
}

// Logout returns to anonymous and clears the persisted record.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	if prev != nil && m.access != nil {
		m.access.LogAccess(*prev, models.ActionLogout)
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Restore resumes a persisted session using the freshly loaded record of
// the same id. A snapshot whose user is gone is cleared.
func (m *Manager) Restore(ctx context.Context, users []models.User) (models.User, bool, error) {
	saved, err := m.store.Get(ctx)
	if err != nil {
		return models.User{}, false, fmt.Errorf("restore session: %w", err)
	}
	if saved == nil {
		return models.User{}, false, nil
	}

	for _, u := range users {
		if u.ID == saved.ID {
			m.setCurrent(&u)
			if err := m.store.Set(ctx, &u); err != nil {
				m.log.Warn("failed to refresh persisted session", zap.Error(err))
			}
			return u, true, nil
		}
	}

	m.setCurrent(nil)
	if err := m.store.Clear(ctx); err != nil {
		return models.User{}, false, fmt.Errorf("clear stale session: %w", err)
	}
	return models.User{}, false, nil
}

// Current returns the authenticated user, if any.
func (m *Manager) Current() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.User{}, false
	}
	return *m.current, true
}

// Refresh replaces the session identity when saved is the logged in user.
func (m *Manager) Refresh(ctx context.Context, saved models.User) error {
	cur, ok := m.Current()
	if !ok || cur.ID != saved.ID {
		return nil
	}
	m.setCurrent(&saved)
	return m.store.Set(ctx, &saved)
}

func (m *Manager) authenticate(ctx context.Context, u models.User) (models.User, error) {
	if err := m.store.Set(ctx, &u); err != nil {
		return models.User{}, fmt.Errorf("persist session: %w", err)
	}
	m.setCurrent(&u)
	if m.access != nil {
		m.access.LogAccess(u, models.ActionLogin)
	}
	m.log.Info("user logged in",
		zap.String(logger.FieldUserID, u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

func (m *Manager) setCurrent(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u == nil {
		m.current = nil
		return
	}
	cp := *u
	m.current = &cp
}

// match finds a user by exact id, or by a case-insensitive fragment of the
// name. An empty identifier matches nobody.
func match(users []models.User, identifier string) (models.User, bool) {
	if identifier == "" {
		return models.User{}, false
	}
	needle := strings.ToLower(identifier)
	for _, u := range users {
		if u.ID == identifier || strings.Contains(strings.ToLower(u.Name), needle) {
			return u, true
		}
	}
	return models.User{}, false
}

func fallbackAdmin(users []models.User) models.User {
	for _, u := range users {
		if u.IsAdmin() {
			return u
		}
	}
	return EmergencyAdmin()
}
