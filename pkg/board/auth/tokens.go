package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth"
)

// Token lifetimes used when the configuration leaves them zero.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

const (
	claimTokenUse = "token_use"
	useAccess     = "access"
	useRefresh    = "refresh"
)

// TokenPair is returned by a successful admin login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenIssuer signs and verifies HS256 tokens carrying the user id as sub.
type TokenIssuer struct {
	ja         *jwtauth.JWTAuth
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates an issuer signing with secret
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{
		ja:         jwtauth.New("HS256", []byte(secret), nil),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// JWTAuth exposes the signer for jwtauth.Verifier
func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return t.ja
}

// Issue creates an access and a refresh token for uid
func (t *TokenIssuer) Issue(uid string) (*TokenPair, error) {
	now := t.now()
	access, err := t.sign(uid, useAccess, now.Add(t.accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(uid, useRefresh, now.Add(t.refreshTTL))
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (t *TokenIssuer) sign(uid, use string, expiry time.Time) (string, error) {
	claims := map[string]interface{}{
		"sub":         uid,
		claimTokenUse: use,
	}
	jwtauth.SetExpiry(claims, expiry)
	_, token, err := t.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// SubjectFromContext returns the user id of the access token placed in ctx
// by jwtauth.Verifier.
func (t *TokenIssuer) SubjectFromContext(ctx context.Context) (string, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return "", ErrUnauthorized
	}
	return t.subject(claims)
}

// Verify parses a raw access token and returns its subject.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	token, err := jwtauth.VerifyToken(t.ja, raw)
	if err != nil {
		return "", ErrUnauthorized
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return "", ErrUnauthorized
	}
	return t.subject(claims)
}

func (t *TokenIssuer) subject(claims map[string]interface{}) (string, error) {
	if use, _ := claims[claimTokenUse].(string); use != useAccess {
		return "", ErrUnauthorized
	}
	if exp, ok := claims["exp"].(time.Time); !ok || !exp.After(t.now()) {
		return "", ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrUnauthorized
	}
	return sub, nil
}
