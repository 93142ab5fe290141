package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/remote"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc      *Service
	dir      *Directory
	users    *remote.Mirror[User]
	sessions *remote.Mirror[Session]
	clock    *testClock
}

func newFixture(t *testing.T, usersRemote remote.Table[User]) *fixture {
	t.Helper()
	store := localstore.New(localstore.NewMemory())
	users := remote.NewMirror(usersRemote, localstore.NewCollection[User](store, remote.TableUsers))
	sessions := remote.NewMirror[Session](nil, localstore.NewCollection[Session](store, remote.TableSessions))
	tokens, err := NewTokens("test-secret", 4*time.Hour)
	require.NoError(t, err)
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := NewService(users, sessions, tokens, WithClock(clock.Now), WithIdleTimeout(30*time.Minute))
	require.NoError(t, err)
	return &fixture{svc: svc, dir: NewDirectory(users, svc), users: users, sessions: sessions, clock: clock}
}

func (f *fixture) createUser(t *testing.T, email, profile string) User {
	t.Helper()
	u, err := f.dir.CreateUser(context.Background(), NewUserInput{
		Name: "User " + email, Email: email, Password: "secret1", Profile: profile, CondominiumID: "condo-1",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) login(email string) (LoginResult, error) {
	return f.svc.Login(context.Background(), LoginRequest{Email: email, Password: "secret1", Browser: "test", IP: "10.0.0.1"})
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	u := f.createUser(t, "ana@example.com", "manager")

	res, err := f.login(" ANA@example.com ")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, u.ID, res.Principal.User.ID)
	require.Equal(t, "10.0.0.1", res.Principal.Session.IP)

	p, err := f.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	require.Equal(t, res.Principal.Session.ID, p.Session.ID)
	require.True(t, p.HasPermission(PermUsersManage))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "ana@example.com", "doorman")

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "wrong!"})
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Login(context.Background(), LoginRequest{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f := newFixture(t, nil)
	u := f.createUser(t, "ana@example.com", "doorman")
	inactive := false
	_, err := f.dir.UpdateUser(context.Background(), u.ID, UserUpdate{Active: &inactive})
	require.NoError(t, err)

	_, err = f.login("ana@example.com")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSingleSessionForNonPrivileged(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "door@example.com", "doorman")
	f.createUser(t, "root@example.com", "admin")

	_, err := f.login("door@example.com")
	require.NoError(t, err)
	_, err = f.login("door@example.com")
	require.ErrorIs(t, err, ErrSessionActive)

	_, err = f.login("root@example.com")
	require.NoError(t, err)
	_, err = f.login("root@example.com")
	require.NoError(t, err, "admin may hold concurrent sessions")
}

func TestStaleSessionDoesNotBlockLogin(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "door@example.com", "doorman")

	first, err := f.login("door@example.com")
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	_, err = f.login("door@example.com")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(context.Background(), first.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateExpiresIdleSession(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "tech@example.com", "technician")
	res, err := f.login("tech@example.com")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err, "activity refreshes the session")

	f.clock.Advance(20 * time.Minute)
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.sessions.Get(context.Background(), res.Principal.Session.ID)
	require.True(t, remote.IsNotFound(err))
}

func TestLogout(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "ana@example.com", "manager")
	res, err := f.login("ana@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), res.Principal.Session.ID))
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, f.svc.Logout(context.Background(), res.Principal.Session.ID), ErrNotFound)

	_, err = f.login("ana@example.com")
	require.NoError(t, err)
}

func TestSweepRemovesOnlyIdleSessions(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "a@example.com", "manager")
	f.createUser(t, "b@example.com", "manager")

	_, err := f.login("a@example.com")
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)
	fresh, err := f.login("b@example.com")
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	n, err := f.svc.Sweep(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	left, err := f.svc.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, fresh.Principal.Session.ID, left[0].ID)
}

func TestRunSweeperRemovesIdleSessionsUntilCancelled(t *testing.T) {
	f := newFixture(t, nil)
	f.createUser(t, "a@example.com", "manager")
	f.createUser(t, "b@example.com", "technician")
	_, err := f.login("a@example.com")
	require.NoError(t, err)
	_, err = f.login("b@example.com")
	require.NoError(t, err)
	f.clock.Advance(45 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.RunSweeper(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		left, err := f.sessions.List(context.Background())
		return err == nil && len(left) == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRevokeUserSessions(t *testing.T) {
	f := newFixture(t, nil)
	u := f.createUser(t, "root@example.com", "admin")
	for i := 0; i < 3; i++ {
		_, err := f.login("root@example.com")
		require.NoError(t, err)
	}
	n, err := f.svc.RevokeUserSessions(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	list, err := f.svc.UserSessions(context.Background(), u.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

type downUsers struct{}

var errDown = errors.New("connection refused")

func (downUsers) Name() string                                         { return remote.TableUsers }
func (downUsers) List(context.Context) ([]User, error)                 { return nil, errDown }
func (downUsers) Get(context.Context, string) (User, error)            { return User{}, errDown }
func (downUsers) Find(context.Context, string, string) ([]User, error) { return nil, errDown }
func (downUsers) Upsert(context.Context, User) error                   { return errDown }
func (downUsers) Delete(context.Context, string) error                 { return errDown }

func TestLoginFallsBackToLocalUsers(t *testing.T) {
	f := newFixture(t, downUsers{})
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, f.users.Local().Put(context.Background(), User{
		ID: "u1", Name: "Cached", Email: "cached@example.com", PasswordHash: hash,
		Profile: ProfileManager, Active: true, CreatedAt: f.clock.Now(),
	}))

	res, err := f.login("cached@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", res.Principal.User.ID)
}
