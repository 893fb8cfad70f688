// Package jwtauth provides a server-side auth module that validates JWT
// bearer tokens against a JWKS endpoint.
package jwtauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/errors"
)

// ModuleName is the registry name of this module.
const ModuleName = "jwt"

func init() {
	auth.RegisterModule(ModuleName, func() auth.Module { return &module{} })
}

// module validates bearer tokens. Options:
//   - jwks_url: the URL to fetch signing keys from (required)
//   - issuer: expected token issuer
//   - audience: expected token audience
type module struct {
	jwksURL  string
	issuer   string
	audience string

	jwksCache  *jwk.Cache
	cancelJWKS context.CancelFunc

	// Lazy JWKS registration
	jwksRegistered      bool
	jwksRegistrationMu  sync.Mutex
	jwksRegistrationErr error
}

func (m *module) Init(_, _ auth.Policy, _ auth.CallbackHandler, options map[string]any) error {
	if v, ok := options["jwks_url"].(string); ok {
		m.jwksURL = v
	}
	if m.jwksURL == "" {
		return errors.NewInvalidArgumentError("jwt module requires a jwks_url option", nil)
	}
	if v, ok := options["issuer"].(string); ok {
		m.issuer = v
	}
	if v, ok := options["audience"].(string); ok {
		m.audience = v
	}

	// The cache's background refresh outlives individual requests; it is
	// stopped in Dispose.
	ctx, cancel := context.WithCancel(context.Background())
	httprcClient := httprc.NewClient(httprc.WithHTTPClient(http.DefaultClient))
	cache, err := jwk.NewCache(ctx, httprcClient)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create JWKS cache: %w", err)
	}
	m.jwksCache = cache
	m.cancelJWKS = cancel
	return nil
}

func (m *module) Dispose() {
	if m.cancelJWKS != nil {
		m.cancelJWKS()
	}
}

// ensureJWKSRegistered ensures that the JWKS URL is registered with the cache.
func (m *module) ensureJWKSRegistered(ctx context.Context) error {
	m.jwksRegistrationMu.Lock()
	defer m.jwksRegistrationMu.Unlock()

	if m.jwksRegistered {
		return m.jwksRegistrationErr
	}

	registrationCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.jwksCache.Register(registrationCtx, m.jwksURL)
	if err != nil {
		m.jwksRegistrationErr = fmt.Errorf("failed to register JWKS URL: %w", err)
	} else {
		m.jwksRegistrationErr = nil
	}

	m.jwksRegistered = true
	return m.jwksRegistrationErr
}

// getKeyFromJWKS gets the key from the JWKS.
func (m *module) getKeyFromJWKS(ctx context.Context, token *jwt.Token) (any, error) {
	if err := m.ensureJWKSRegistered(ctx); err != nil {
		return nil, fmt.Errorf("JWKS registration failed: %w", err)
	}

	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("token header missing kid")
	}

	keySet, err := m.jwksCache.Lookup(ctx, m.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup JWKS: %w", err)
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}

	return rawKey, nil
}

// validateClaims validates the claims in the token.
func (m *module) validateClaims(claims jwt.MapClaims) error {
	if m.issuer != "" {
		issuerClaim, err := claims.GetIssuer()
		if err != nil {
			return fmt.Errorf("failed to get issuer from claims: %w", err)
		}
		if strings.TrimSpace(issuerClaim) != strings.TrimSpace(m.issuer) {
			return fmt.Errorf("invalid issuer %q", issuerClaim)
		}
	}

	if m.audience != "" {
		audiences, err := claims.GetAudience()
		if err != nil {
			return fmt.Errorf("invalid audience")
		}

		found := false
		for _, aud := range audiences {
			if aud == m.audience {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid audience")
		}
	}

	expirationTime, err := claims.GetExpirationTime()
	if err != nil || expirationTime == nil || expirationTime.Before(time.Now()) {
		return fmt.Errorf("token expired")
	}

	return nil
}

// ValidateRequest extracts the bearer token from the Authorization header,
// verifies its signature against the JWKS, checks issuer, audience and
// expiry, and establishes the caller's identity from the claims.
func (m *module) ValidateRequest(ctx context.Context, msg *auth.Message) error {
	authHeader := msg.Request.Header.Get("Authorization")
	if authHeader == "" {
		return errors.NewAuthError("missing authorization header", nil)
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return errors.NewAuthError("invalid authorization header format", nil)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return m.getKeyFromJWKS(ctx, token)
	})
	if err != nil {
		return errors.NewAuthError("failed to parse token", err)
	}
	if !token.Valid {
		return errors.NewAuthError("invalid token", nil)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.NewAuthError("failed to get claims from token", nil)
	}
	if err := m.validateClaims(claims); err != nil {
		return errors.NewAuthError("token validation failed", err)
	}

	msg.Identity = identityFromClaims(claims, tokenString)
	if msg.Identity.Subject == "" {
		return errors.NewAuthError("token has no subject", nil)
	}
	return nil
}

func (*module) SecureResponse(_ context.Context, _ *auth.Message) error {
	return nil
}

// identityFromClaims maps the validated claim set onto an Identity,
// keeping the raw token for passthrough scenarios.
func identityFromClaims(claims jwt.MapClaims, token string) *auth.Identity {
	identity := &auth.Identity{
		Claims:    map[string]any(claims),
		Token:     token,
		TokenType: "Bearer",
	}
	if sub, err := claims.GetSubject(); err == nil {
		identity.Subject = sub
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	return identity
}
