package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/remote"
)

const (
	DefaultIdleTimeout   = 30 * time.Minute
	defaultTouchInterval = time.Minute
)

// Service authenticates users and owns the session lifecycle.
type Service struct {
	users    Users
	sessions Sessions
	tokens   *Tokens

	now           func() time.Time
	idleTimeout   time.Duration
	touchInterval time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
			s.tokens.now = fn
		}
		return nil
	}
}

// WithIdleTimeout sets how long a session may stay without activity.
func WithIdleTimeout(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("auth: idle timeout must be positive")
		}
		s.idleTimeout = d
		return nil
	}
}

// WithTouchInterval limits how often request activity is persisted.
func WithTouchInterval(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d >= 0 {
			s.touchInterval = d
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(users Users, sessions Sessions, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if users == nil || sessions == nil || tokens == nil {
		return nil, errors.New("auth: users, sessions and tokens are required")
	}
	svc := &Service{
		users:         users,
		sessions:      sessions,
		tokens:        tokens,
		now:           time.Now,
		idleTimeout:   DefaultIdleTimeout,
		touchInterval: defaultTouchInterval,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// IdleTimeout returns the configured inactivity limit.
func (s *Service) IdleTimeout() time.Duration { return s.idleTimeout }

// LoginRequest carries credentials and client metadata.
type LoginRequest struct {
	Email    string
	Password string
	Browser  string
	IP       string
}

// LoginResult is a fresh session with its bearer token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}

// Login validates credentials and opens a session. Non-privileged users
// with a live session elsewhere get ErrSessionActive.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		obs.LoginAttempts.WithLabelValues("invalid").Inc()
		return LoginResult{}, ErrUnauthorized
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.LoginAttempts.WithLabelValues("invalid").Inc()
			return LoginResult{}, ErrUnauthorized
		}
		return LoginResult{}, err
	}
	if !user.Active {
		obs.LoginAttempts.WithLabelValues("inactive").Inc()
		return LoginResult{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, req.Password); err != nil {
		obs.LoginAttempts.WithLabelValues("invalid").Inc()
		return LoginResult{}, ErrUnauthorized
	}

	now := s.now().UTC()
	if !user.Profile.Privileged() {
		live, err := s.liveSessions(ctx, user.ID, now)
		if err != nil {
			return LoginResult{}, err
		}
		if live > 0 {
			obs.LoginAttempts.WithLabelValues("session_active").Inc()
			return LoginResult{}, ErrSessionActive
		}
	}

	sess := Session{
		ID:           ids.NewSession(),
		UserID:       user.ID,
		Profile:      user.Profile,
		CreatedAt:    now,
		LastActivity: now,
		Browser:      strings.TrimSpace(req.Browser),
		IP:           strings.TrimSpace(req.IP),
	}
	token, exp, err := s.tokens.Issue(sess)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("auth: store session: %w", err)
	}
	obs.LoginAttempts.WithLabelValues("success").Inc()
	obs.ActiveSessions.Inc()
	obs.Info("session opened", "user_id", user.ID, "session_id", sess.ID, "profile", string(user.Profile))
	return LoginResult{Token: token, ExpiresAt: exp, Principal: NewPrincipal(user, sess)}, nil
}

// Authenticate resolves a bearer token into a principal and records activity.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if remote.IsNotFound(err) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if sess.UserID != claims.Subject {
		return Principal{}, ErrInvalidToken
	}
	now := s.now().UTC()
	if sess.Expired(now, s.idleTimeout) {
		s.dropSession(ctx, sess.ID, "expired")
		return Principal{}, ErrInvalidToken
	}
	user, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if remote.IsNotFound(err) {
			s.dropSession(ctx, sess.ID, "user_missing")
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !user.Active {
		s.dropSession(ctx, sess.ID, "user_inactive")
		return Principal{}, ErrInvalidToken
	}
	if now.Sub(sess.LastActivity) >= s.touchInterval {
		sess.LastActivity = now
		if err := s.sessions.Put(ctx, sess); err != nil {
			obs.Warn("session touch failed", "session_id", sess.ID, "error", err)
		}
	}
	return NewPrincipal(user, sess), nil
}

// Logout ends the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if remote.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	obs.ActiveSessions.Dec()
	obs.Info("session closed", "session_id", sessionID, "reason", "logout")
	return nil
}

// ListSessions returns every stored session, newest activity first.
func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	sortSessions(all)
	return all, nil
}

// UserSessions returns the sessions of one user.
func (s *Service) UserSessions(ctx context.Context, userID string) ([]Session, error) {
	out, err := s.sessions.Find(ctx, "user_id", userID, func(sess Session) bool { return sess.UserID == userID })
	if err != nil {
		return nil, err
	}
	sortSessions(out)
	return out, nil
}

// Session loads one session by id.
func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		if remote.IsNotFound(err) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

// RevokeSession deletes a session by id.
func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if remote.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	obs.ActiveSessions.Dec()
	obs.Info("session closed", "session_id", sessionID, "reason", "revoked")
	return nil
}

// RevokeUserSessions deletes every session of userID.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	list, err := s.UserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sess := range list {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil && !remote.IsNotFound(err) {
			return n, err
		}
		n++
	}
	if n > 0 {
		obs.ActiveSessions.Sub(float64(n))
		obs.Info("user sessions revoked", "user_id", userID, "count", n)
	}
	return n, nil
}

// Sweep removes sessions idle longer than the timeout at now and returns the count.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	all, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	now = now.UTC()
	removed := 0
	for _, sess := range all {
		if !sess.Expired(now, s.idleTimeout) {
			continue
		}
		if err := s.sessions.Delete(ctx, sess.ID); err != nil && !remote.IsNotFound(err) {
			return removed, err
		}
		removed++
	}
	obs.SessionsSwept.Add(float64(removed))
	obs.ActiveSessions.Set(float64(len(all) - removed))
	return removed, nil
}

func (s *Service) liveSessions(ctx context.Context, userID string, now time.Time) (int, error) {
	list, err := s.UserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}
	live := 0
	for _, sess := range list {
		if sess.Expired(now, s.idleTimeout) {
			s.dropSession(ctx, sess.ID, "expired")
			continue
		}
		live++
	}
	return live, nil
}

func (s *Service) dropSession(ctx context.Context, id, reason string) {
	if err := s.sessions.Delete(ctx, id); err != nil && !remote.IsNotFound(err) {
		obs.Warn("session cleanup failed", "session_id", id, "error", err)
		return
	}
	obs.ActiveSessions.Dec()
	obs.Info("session closed", "session_id", id, "reason", reason)
}

func (s *Service) findByEmail(ctx context.Context, email string) (User, error) {
	return findUserByEmail(ctx, s.users, email)
}

func findUserByEmail(ctx context.Context, users Users, email string) (User, error) {
	list, err := users.Find(ctx, "email", email, func(u User) bool { return normalizeEmail(u.Email) == email })
	if err != nil {
		return User{}, err
	}
	for _, u := range list {
		if normalizeEmail(u.Email) == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func sortSessions(list []Session) {
	slices.SortFunc(list, func(a, b Session) int { return b.LastActivity.Compare(a.LastActivity) })
}
