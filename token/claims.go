package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Claims are the fields the client reads from an access token. The client never
// trusts them for authorization; they only drive display and scheduling.
type Claims struct {
	Subject   string
	Issuer    string
	Username  string
	Email     string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the time left before the token expires, or zero when the
// token carries no exp claim or has already expired.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() || now.After(c.ExpiresAt) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Inspect parses an access token without verifying its signature.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, sinkerrors.ErrInvalidToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(sinkerrors.ErrInvalidToken, err.Error())
	}

	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(sinkerrors.ErrInvalidToken, "error extracting claims")
	}

	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Issuer, _ = mc["iss"].(string)
	c.Username, _ = mc["preferred_username"].(string)
	c.Email, _ = mc["email"].(string)
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := mc["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0)
	}
	c.Roles = rolesFromClaims(mc)
	return c, nil
}

// rolesFromClaims collects "roles" and Keycloak style "realm_access.roles".
func rolesFromClaims(mc jwtlib.MapClaims) []string {
	var roles []string
	if claimRoles, ok := mc["roles"].([]interface{}); ok {
		roles = append(roles, utils.ToStringSlice(claimRoles)...)
	}
	if realm, ok := mc["realm_access"].(map[string]interface{}); ok {
		if realmRoles, ok := realm["roles"].([]interface{}); ok {
			roles = append(roles, utils.ToStringSlice(realmRoles)...)
		}
	}
	return roles
}

// OAuth2Token presents a token pair as an oauth2.Token. Expiry is taken from
// the access token when it is a parseable JWT and left zero otherwise.
func OAuth2Token(accessToken, refreshToken string) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if c, err := Inspect(accessToken); err == nil {
		t.Expiry = c.ExpiresAt
	}
	return t
}
