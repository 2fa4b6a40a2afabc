package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/rest"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AuthError is returned when a login attempt does not produce a session.
type AuthError struct {
	Identifier string
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed for %q: %v", e.Identifier, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// LoginResult is what a successful login leaves in the Credential Store.
type LoginResult struct {
	Session credentials.Session
	Profile credentials.Profile
}

func (r *LoginResult) Role() credentials.Role {
	return r.Profile.Role
}

// Login exchanges the user's credentials for a token pair, stores it and
// caches the member's profile. Tokens are removed again if the profile fetch fails.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	var resp sinkmodel.LoginResponse
	err := rest.Do(ctx, c.httpClient, http.MethodPost, c.url(pathLogin), sinkmodel.LoginRequest{
		UserIdentifier: identifier,
		Password:       password,
	}, &resp)
	if err != nil {
		var se *sinkmodel.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			err = fmt.Errorf("%w: %w", sinkerrors.ErrInvalidCredentials, err)
		}
		return nil, &AuthError{Identifier: identifier, Err: err}
	}

	session := credentials.Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if c.verifier != nil {
		if err := c.verifier.Verify(ctx, session.AccessToken); err != nil {
			return nil, &AuthError{Identifier: identifier, Err: err}
		}
	}
	if err := c.store.SetSession(ctx, session); err != nil {
		return nil, &AuthError{Identifier: identifier, Err: err}
	}

	member, err := c.fetchMember(ctx, session.AccessToken)
	if err != nil {
		c.discardLogin(ctx)
		return nil, &AuthError{Identifier: identifier, Err: errors.Wrap(err, "fetch profile")}
	}

	profile := ProfileFromMember(member, loginRole(resp, session.AccessToken, member))
	if profile.MemberID == 0 {
		profile.MemberID = resp.MemberID
	}
	if err := c.store.SetProfile(ctx, profile); err != nil {
		c.discardLogin(ctx)
		return nil, &AuthError{Identifier: identifier, Err: errors.Wrap(err, "store profile")}
	}

	log.Info().Str("identifier", identifier).Str("role", string(profile.Role)).Msg("Logged in")
	return &LoginResult{Session: session, Profile: profile}, nil
}

// discardLogin removes the tokens of a login that did not complete.
func (c *Client) discardLogin(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.Err(err).Msg("Login: failed to clear tokens of an incomplete login")
	}
}

// loginRole prefers the login response's role markers, then the access token's
// role claims, then the member's own role field.
func loginRole(resp sinkmodel.LoginResponse, accessToken string, member sinkmodel.Member) credentials.Role {
	if len(resp.Role) > 0 {
		return credentials.RoleFromMarkers(resp.Role)
	}
	if claims, err := token.Inspect(accessToken); err == nil && len(claims.Roles) > 0 {
		return credentials.RoleFromMarkers(claims.Roles)
	}
	return credentials.ParseRole(member.UserRole)
}

// ProfileFromMember converts a backend member into a profile cache entry with the given role.
func ProfileFromMember(m sinkmodel.Member, role credentials.Role) credentials.Profile {
	return credentials.Profile{
		Email:       m.Email,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		PhoneNumber: m.PhoneNumber,
		MemberID:    m.MemberID,
		Role:        role,
	}
}

// FetchProfile reloads the profile cache with the stored access token. The
// cached role is kept. A 401 ends the session like any other API call.
func (c *Client) FetchProfile(ctx context.Context) (credentials.Profile, error) {
	s, err := c.store.Session(ctx)
	if err != nil {
		return credentials.Profile{}, errors.Wrap(err, "[Client.FetchProfile] store.Session")
	}
	if s.AccessToken == "" {
		return credentials.Profile{}, sinkerrors.ErrSessionEnded
	}
	member, err := c.fetchMember(ctx, s.AccessToken)
	if errors.Is(err, sinkerrors.ErrUnauthorized) {
		_ = c.Logout(ctx, sinkerrors.ErrUnauthorized)
	}
	if err != nil {
		return credentials.Profile{}, errors.Wrap(err, "[Client.FetchProfile]")
	}
	cached, err := c.store.Profile(ctx)
	if err != nil {
		return credentials.Profile{}, errors.Wrap(err, "[Client.FetchProfile] store.Profile")
	}
	profile := ProfileFromMember(member, cached.Role)
	if profile.Role == "" {
		profile.Role = credentials.ParseRole(member.UserRole)
	}
	return profile, c.SaveProfile(ctx, profile)
}

func (c *Client) fetchMember(ctx context.Context, accessToken string) (sinkmodel.Member, error) {
	var member sinkmodel.Member
	req, err := rest.NewRequest(ctx, http.MethodGet, c.url(pathProfile), nil)
	if err != nil {
		return member, err
	}
	token.OAuth2Token(accessToken, "").SetAuthHeader(req)
	return member, rest.Send(c.httpClient, req, &member)
}
