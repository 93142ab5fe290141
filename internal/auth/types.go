package auth

import (
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/remote"
)

// Profile is the fixed role tag of a user.
type Profile string

const (
	ProfileAdmin      Profile = "admin"
	ProfileManager    Profile = "manager"
	ProfileTechnician Profile = "technician"
	ProfileDoorman    Profile = "doorman"
	ProfileResident   Profile = "resident"
)

// Profiles lists every accepted profile.
var Profiles = []Profile{ProfileAdmin, ProfileManager, ProfileTechnician, ProfileDoorman, ProfileResident}

// ParseProfile normalises s and rejects unknown tags.
func ParseProfile(s string) (Profile, bool) {
	p := Profile(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range Profiles {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Privileged profiles may hold concurrent sessions.
func (p Profile) Privileged() bool { return p == ProfileAdmin }

// User is an operator of the dashboard.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash,omitempty"`
	Profile       Profile   `json:"profile"`
	CondominiumID string    `json:"condominium_id,omitempty"`
	Permissions   []string  `json:"permissions,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u User) RecordID() string      { return u.ID }
func (u User) RecordTime() time.Time { return u.CreatedAt }

// Session marks an active login.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Browser      string    `json:"browser,omitempty"`
	IP           string    `json:"ip,omitempty"`
}

func (s Session) RecordID() string { return s.ID }

// RecordTime orders sessions by activity so quota trimming drops the stalest.
func (s Session) RecordTime() time.Time { return s.LastActivity }

// Expired reports whether the session was idle longer than timeout at now.
func (s Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Users is the user table as seen by this package.
type Users = remote.Repo[User]

// Sessions is the session table as seen by this package.
type Sessions = remote.Repo[Session]
