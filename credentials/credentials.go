// Package credentials holds the client-side Credential Store: the current token
// pair and the cached profile of the signed in member.
package credentials

import (
	"context"
	"strings"

	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
)

// Role is the coarse role the UI uses to decide which screens to show.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"

	// AdminMarker is the backend role marker that grants the Admin role.
	AdminMarker = "ROLE_ADMIN"
)

// RoleFromMarkers derives the cached role from the backend role markers.
func RoleFromMarkers(markers []string) Role {
	for _, m := range markers {
		if strings.EqualFold(strings.TrimSpace(m), AdminMarker) {
			return RoleAdmin
		}
	}
	return RoleUser
}

// ParseRole maps a stored or backend supplied role name onto a Role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "role_admin":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Session is the token pair issued by the backend. Both tokens are replaced together.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

func (s Session) validate() error {
	if s.AccessToken == "" || s.RefreshToken == "" {
		return sinkerrors.ErrIncompleteSession
	}
	return nil
}

// Profile is the cached identity of the signed in member.
type Profile struct {
	Email       string `json:"userEmail"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	MemberID    int64  `json:"memberId"`
	Role        Role   `json:"userRole"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Store is the process-wide holder of the current Session and Profile.
// SetSession always writes both tokens; Clear removes everything.
type Store interface {
	Session(ctx context.Context) (Session, error)
	SetSession(ctx context.Context, session Session) error
	Profile(ctx context.Context) (Profile, error)
	SetProfile(ctx context.Context, profile Profile) error
	Clear(ctx context.Context) error
}

// document is the persisted shape shared by the file and redis stores.
type document struct {
	Session Session  `json:"session"`
	Profile *Profile `json:"profile,omitempty"`
}
