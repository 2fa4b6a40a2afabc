package sinkmodel

import (
	"encoding/json"

	"github.com/jrsteele09/go-sink-client/internal/utils"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	// UserIdentifier is a username or an email address.
	UserIdentifier string `json:"userIdentifier"`
	Password       string `json:"password"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	MemberID     int64       `json:"memberId,omitempty"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	Role         RoleMarkers `json:"role,omitempty"`
}

// RoleMarkers are backend role names such as "ROLE_ADMIN". The backend sends
// either a JSON list or a single string like "[ROLE_USER, ROLE_ADMIN]".
type RoleMarkers []string

func (r *RoleMarkers) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = utils.SplitList(s)
	return nil
}

// RefreshRequest is the body of POST /auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries a freshly issued token pair. Both tokens rotate.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
}

// RegistrationForm is the body of POST /auth/register.
type RegistrationForm struct {
	Username       string `json:"username"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeatPassword"`
}

// RegistrationResult is the outcome of a registration attempt as shown to the user.
type RegistrationResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// UsernameAvailability is returned from GET /auth/check-username.
type UsernameAvailability struct {
	Available bool `json:"available"`
}
