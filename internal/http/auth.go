package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/scoutline/scout-api/config"
)

// IdentityVerifier resolves the owner id for an incoming request.
type IdentityVerifier interface {
	VerifyRequest(ctx context.Context, r *http.Request) (string, error)
}

// OIDCVerifier validates bearer tokens against an OIDC issuer and uses the
// token subject as the owner id.
type OIDCVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewOIDCVerifier creates a verifier backed by the issuer's published keys.
// Discovery happens once at construction.
func NewOIDCVerifier(ctx context.Context, cfg config.OIDCConfig) (*OIDCVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("OIDC issuer URL is required")
	}

	provider, err := gooidc.NewProvider(ctx, strings.TrimSuffix(cfg.IssuerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// VerifyRequest validates the Authorization bearer token and returns the
// token subject.
func (v *OIDCVerifier) VerifyRequest(ctx context.Context, r *http.Request) (string, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return "", err
	}

	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verify bearer token: %w", err)
	}
	if token.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return token.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("Authorization header is not a bearer token")
	}
	return token, nil
}

// DevVerifier trusts the X-Owner-ID header, falling back to a configured
// default owner. Local development only; never wired in oidc mode.
type DevVerifier struct {
	DefaultOwnerID string
}

// NewDevVerifier creates a verifier for dev mode.
func NewDevVerifier(cfg config.DevAuthConfig) *DevVerifier {
	return &DevVerifier{DefaultOwnerID: cfg.DefaultOwnerID}
}

// VerifyRequest returns the X-Owner-ID header when present, otherwise the
// configured default owner.
func (v *DevVerifier) VerifyRequest(_ context.Context, r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get("X-Owner-ID")); id != "" {
		return id, nil
	}
	if v.DefaultOwnerID != "" {
		return v.DefaultOwnerID, nil
	}
	return "", errors.New("no owner identity on request")
}

var (
	_ IdentityVerifier = (*OIDCVerifier)(nil)
	_ IdentityVerifier = (*DevVerifier)(nil)
)
