package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/remote"
)

// Directory manages user records.
type Directory struct {
	users   Users
	revoker interface {
		RevokeUserSessions(ctx context.Context, userID string) (int, error)
	}
	now func() time.Time
}

// NewDirectory constructs a Directory. svc may be nil when session
// revocation on deactivation is not needed.
func NewDirectory(users Users, svc *Service) *Directory {
	d := &Directory{users: users, now: time.Now}
	if svc != nil {
		d.revoker = svc
		d.now = svc.now
	}
	return d
}

// NewUserInput is the payload for CreateUser.
type NewUserInput struct {
	Name          string
	Email         string
	Password      string
	Profile       string
	CondominiumID string
	Permissions   []string
	Active        *bool
}

// UserUpdate carries optional changes; nil fields are left untouched.
type UserUpdate struct {
	Name          *string
	Email         *string
	Password      *string
	Profile       *string
	CondominiumID *string
	Permissions   *[]string
	Active        *bool
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	CondominiumID string
	Profile       Profile
	Active        *bool
	Query         string
}

// CreateUser validates input and stores a new user.
func (d *Directory) CreateUser(ctx context.Context, in NewUserInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email, err := parseEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	profile, ok := ParseProfile(in.Profile)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidInput, in.Profile)
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	if err := d.ensureEmailFree(ctx, email, ""); err != nil {
		return User{}, err
	}
	now := d.now().UTC()
	user := User{
		ID:            ids.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Profile:       profile,
		CondominiumID: strings.TrimSpace(in.CondominiumID),
		Permissions:   perms,
		Active:        in.Active == nil || *in.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.users.Put(ctx, user); err != nil {
		return User{}, mapStoreErr(err)
	}
	obs.Info("user created", "user_id", user.ID, "profile", string(profile))
	return user, nil
}

// GetUser loads a user by id.
func (d *Directory) GetUser(ctx context.Context, id string) (User, error) {
	u, err := d.users.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, mapStoreErr(err)
	}
	return u, nil
}

// ListUsers returns users matching filter ordered by name.
func (d *Directory) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	all, err := d.users.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]User, 0, len(all))
	for _, u := range all {
		if f.CondominiumID != "" && u.CondominiumID != f.CondominiumID {
			continue
		}
		if f.Profile != "" && u.Profile != f.Profile {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(u.Email, q) {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) })
	return out, nil
}

// UpdateUser applies upd. Deactivating a user closes its sessions.
func (d *Directory) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	user, err := d.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		user.Name = name
	}
	if upd.Email != nil {
		email, err := parseEmail(*upd.Email)
		if err != nil {
			return User{}, err
		}
		if email != user.Email {
			if err := d.ensureEmailFree(ctx, email, user.ID); err != nil {
				return User{}, err
			}
			user.Email = email
		}
	}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = hash
	}
	if upd.Profile != nil {
		profile, ok := ParseProfile(*upd.Profile)
		if !ok {
			return User{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidInput, *upd.Profile)
		}
		user.Profile = profile
	}
	if upd.CondominiumID != nil {
		user.CondominiumID = strings.TrimSpace(*upd.CondominiumID)
	}
	if upd.Permissions != nil {
		perms, err := normalizePermissions(*upd.Permissions)
		if err != nil {
			return User{}, err
		}
		user.Permissions = perms
	}
	deactivated := false
	if upd.Active != nil {
		deactivated = user.Active && !*upd.Active
		user.Active = *upd.Active
	}
	user.UpdatedAt = d.now().UTC()
	if err := d.users.Put(ctx, user); err != nil {
		return User{}, mapStoreErr(err)
	}
	if deactivated {
		d.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (d *Directory) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := d.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrUnauthorized
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = d.now().UTC()
	return mapStoreErr(d.users.Put(ctx, user))
}

// DeleteUser removes a user and its sessions.
func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := d.users.Delete(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	d.revokeSessions(ctx, id)
	obs.Info("user deleted", "user_id", id)
	return nil
}

func (d *Directory) revokeSessions(ctx context.Context, userID string) {
	if d.revoker == nil {
		return
	}
	if _, err := d.revoker.RevokeUserSessions(ctx, userID); err != nil {
		obs.Warn("revoke user sessions failed", "user_id", userID, "error", err)
	}
}

func (d *Directory) ensureEmailFree(ctx context.Context, email, selfID string) error {
	u, err := findUserByEmail(ctx, d.users, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case u.ID == selfID:
		return nil
	default:
		return fmt.Errorf("%w: email %s", ErrConflict, email)
	}
}

func parseEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInput, raw)
	}
	return email, nil
}

func normalizePermissions(in []string) ([]string, error) {
	var out []string
	for _, p := range in {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" || slices.Contains(out, p) {
			continue
		}
		if !KnownPermission(p) {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, p)
		}
		out = append(out, p)
	}
	return out, nil
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case remote.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, remote.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
