package fakebackend

import (
	"encoding/base64"
	"math/big"
	"net/http"
	"net/url"
)

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is the public half of the issuer's RSA signing key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS publishes the issuer's verification key.
func (i *Issuer) JWKS() JWKS {
	pub := i.PublicKey()
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Kid: i.KeyID,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}

// discovery is the subset of the OpenID provider metadata clients read.
func (i *Issuer) discovery() map[string]interface{} {
	return map[string]interface{}{
		"issuer":                                i.URL,
		"authorization_endpoint":                i.URL + "/protocol/openid-connect/auth",
		"token_endpoint":                        i.URL + "/protocol/openid-connect/token",
		"jwks_uri":                              i.URL + "/protocol/openid-connect/certs",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
}

// issuerPath is the path part of the issuer URL, e.g. "/realms/kitchensink".
func (i *Issuer) issuerPath() string {
	u, err := url.Parse(i.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

func (b *Backend) initIssuerRoutes() {
	prefix := b.Issuer.issuerPath()
	b.handle("GET "+prefix+"/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Issuer.discovery())
	})
	b.handle("GET "+prefix+"/protocol/openid-connect/certs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Issuer.JWKS())
	})
}
