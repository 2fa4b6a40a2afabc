package fakebackend

import (
	"crypto/rand"
	"crypto/rsa"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Issuer mints RS256 access tokens shaped like the Keycloak tokens the real
// backend hands out.
type Issuer struct {
	URL   string
	TTL   time.Duration
	KeyID string
	key   *rsa.PrivateKey
}

func NewIssuer(url string) *Issuer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return &Issuer{URL: url, TTL: 5 * time.Minute, KeyID: uuid.NewString(), key: key}
}

func (i *Issuer) PublicKey() *rsa.PublicKey {
	return &i.key.PublicKey
}

// AccessToken signs an access token for username carrying roles in realm_access.
func (i *Issuer) AccessToken(username, email string, roles []string) string {
	return i.sign(jwtlib.MapClaims{
		"iss":                i.URL,
		"sub":                username,
		"preferred_username": username,
		"email":              email,
		"realm_access":       map[string]interface{}{"roles": roles},
		"typ":                "Bearer",
		"iat":                NowTimeFunc().Unix(),
		"exp":                NowTimeFunc().Add(i.TTL).Unix(),
		"jti":                uuid.New().String(),
	})
}

// Sign signs arbitrary claims; used to build expired or foreign tokens.
func (i *Issuer) Sign(claims jwtlib.MapClaims) string {
	return i.sign(claims)
}

func (i *Issuer) sign(claims jwtlib.MapClaims) string {
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	tok.Header["kid"] = i.KeyID
	signed, err := tok.SignedString(i.key)
	if err != nil {
		panic(err)
	}
	return signed
}
