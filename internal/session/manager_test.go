package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tutorado/internal/models"
)

type accessSpy struct {
	mu     sync.Mutex
	events []string
}

func (s *accessSpy) LogAccess(u models.User, action models.AccessAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, string(action)+":"+u.ID)
}

func pw(s string) *string { return &s }

var users = []models.User{
	{ID: "ADM001", Name: "Diretora Maria Silva", Role: models.RoleAdmin},
	{ID: "TUT001", Name: "Prof. Carlos Santos", Role: models.RoleTutor, Password: pw("1234")},
	{ID: "TUT002", Name: "Prof. Ana Oliveira", Role: models.RoleTutor},
}

func newManager() (*Manager, *MemoryStore, *accessSpy) {
	store := NewMemoryStore()
	spy := &accessSpy{}
	return NewManager(store, spy, nil), store, spy
}

func TestLoginEmptyUsersIsEmergencyAdmin(t *testing.T) {
	for _, in := range [][2]string{{"anything", "anything"}, {"", ""}, {"TUT001", "wrong"}} {
		m, store, _ := newManager()
		u, err := m.Login(context.Background(), nil, in[0], in[1])
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.Equal(t, EmergencyAdmin(), u)

		saved, _ := store.Get(context.Background())
		require.NotNil(t, saved)
		assert.Equal(t, "ADM001", saved.ID)
	}
}

func TestLoginEmptyIdentifierFallsBackToAdmin(t *testing.T) {
	m, _, spy := newManager()
	only := []models.User{{ID: "ADM001", Role: models.RoleAdmin, Password: pw("secret")}}

	u, err := m.Login(context.Background(), only, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ADM001", u.ID)
	assert.Equal(t, []string{"login:ADM001"}, spy.events)
}

func TestLoginReservedIdentifierWithoutAdmins(t *testing.T) {
	m, _, _ := newManager()
	tutors := []models.User{{ID: "TUT001", Name: "Carlos", Role: models.RoleTutor}}

	u, err := m.Login(context.Background(), tutors, "ADM001", "")
	require.NoError(t, err)
	assert.Equal(t, EmergencyAdmin(), u)
}

func TestLoginByNameFragment(t *testing.T) {
	m, _, _ := newManager()
	u, err := m.Login(context.Background(), users, "  ana oli ", "")
	require.NoError(t, err)
	assert.Equal(t, "TUT002", u.ID)

	cur, ok := m.Current()
	assert.True(t, ok)
	assert.Equal(t, u, cur)
}

func TestLoginPassword(t *testing.T) {
	m, store, spy := newManager()

	_, err := m.Login(context.Background(), users, "TUT001", "nope")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, ok := m.Current()
	assert.False(t, ok)
	saved, _ := store.Get(context.Background())
	assert.Nil(t, saved)
	assert.Empty(t, spy.events)

	u, err := m.Login(context.Background(), users, "TUT001", " 1234 ")
	require.NoError(t, err)
	assert.Equal(t, "TUT001", u.ID)
}

func TestPasswordPromptIsNotLoggedAsRejection(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewManager(NewMemoryStore(), nil, zap.New(core))

	_, err := m.Login(context.Background(), users, "TUT001", "")
	require.ErrorIs(t, err, ErrWrongPassword)
	assert.Zero(t, logs.FilterMessage("login rejected").Len())
}

func TestLoginUnknownUser(t *testing.T) {
	m, _, _ := newManager()
	_, err := m.Login(context.Background(), users, "Zé Ninguém", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogout(t *testing.T) {
	m, store, spy := newManager()
	_, err := m.Login(context.Background(), users, "TUT002", "")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	_, ok := m.Current()
	assert.False(t, ok)
	saved, _ := store.Get(context.Background())
	assert.Nil(t, saved)
	assert.Equal(t, []string{"login:TUT002", "logout:TUT002"}, spy.events)
}

func TestRestoreUsesFreshRecord(t *testing.T) {
	m, store, _ := newManager()
	stale := models.User{ID: "TUT002", Name: "Old Name", Role: models.RoleAdmin}
	require.NoError(t, store.Set(context.Background(), &stale))

	u, ok, err := m.Restore(context.Background(), users)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, users[2], u)

	cur, _ := m.Current()
	assert.Equal(t, "Prof. Ana Oliveira", cur.Name)
	assert.Equal(t, models.RoleTutor, cur.Role)
}

func TestRestoreClearsUnknownSnapshot(t *testing.T) {
	m, store, _ := newManager()
	require.NoError(t, store.Set(context.Background(), &models.User{ID: "TUT404"}))

	_, ok, err := m.Restore(context.Background(), users)
	require.NoError(t, err)
	assert.False(t, ok)

	saved, _ := store.Get(context.Background())
	assert.Nil(t, saved)
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	m, _, _ := newManager()
	_, ok, err := m.Restore(context.Background(), users)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshOnlyTouchesCurrentUser(t *testing.T) {
	m, store, _ := newManager()
	_, err := m.Login(context.Background(), users, "TUT002", "")
	require.NoError(t, err)

	require.NoError(t, m.Refresh(context.Background(), models.User{ID: "TUT001", Name: "Other"}))
	cur, _ := m.Current()
	assert.Equal(t, "Prof. Ana Oliveira", cur.Name)

	require.NoError(t, m.Refresh(context.Background(), models.User{ID: "TUT002", Name: "Ana O.", Role: models.RoleTutor}))
	cur, _ = m.Current()
	assert.Equal(t, "Ana O.", cur.Name)
	saved, _ := store.Get(context.Background())
	assert.Equal(t, "Ana O.", saved.Name)
}

func TestRegistryReusesManagers(t *testing.T) {
	created := 0
	r := NewRegistry(func(string) Store { created++; return NewMemoryStore() }, nil, nil)

	a := r.For("1")
	assert.Same(t, a, r.For("1"))
	assert.NotSame(t, a, r.For("2"))
	assert.Equal(t, 2, created)

	keys := map[string]bool{}
	r.Each(func(k string, _ *Manager) { keys[k] = true })
	assert.Equal(t, map[string]bool{"1": true, "2": true}, keys)
}
