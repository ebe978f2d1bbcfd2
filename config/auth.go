package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOIDC verifies OIDC bearer tokens.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeDev trusts the X-Owner-ID header (for development only).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, dev)", v)
	}
}

// OIDCConfig contains OIDC bearer token verification configuration.
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer used for discovery and key fetching.
	IssuerURL string `env:"ISSUER_URL"`
	// ClientID is the expected audience of accepted tokens.
	ClientID string `env:"CLIENT_ID" envDefault:"scout-api"`
}

// DevAuthConfig controls header-based dev identity.
// Used when AUTH_MODE=dev for development and testing.
type DevAuthConfig struct {
	// DefaultOwnerID is used when a dev request omits the X-Owner-ID header.
	DefaultOwnerID string `env:"OWNER_ID" envDefault:"dev-user"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=dev).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
