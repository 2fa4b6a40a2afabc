package config

type OIDCConfig interface {
	GetOIDCIssuer() string
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

// GetOIDCIssuer returns the issuer (e.g. a Keycloak realm URL) used to verify
// access tokens after login. Empty disables verification.
func (OIDC) GetOIDCIssuer() string {
	return GetEnv("SINK_OIDC_ISSUER", "")
}
