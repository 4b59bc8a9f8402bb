// Package auth issues and verifies bearer tokens and hashes passwords.
//
// Tokens are either signed locally with a shared secret (the mock identity
// stub used in development) or issued by a hosted identity provider and
// verified against its JWKS endpoint.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenUseAccess  = "access"
	TokenUseID      = "id"
	TokenUseRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by board tokens. The field names match the hosted provider's
// access tokens so both verify into the same shape.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// Issuer signs tokens for the local identity stub.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// TokenSet is the result of a login or signup
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Issue signs access, id and refresh tokens for a user.
func (i *Issuer) Issue(userID, username, email string) (*TokenSet, error) {
	access, err := i.sign(userID, username, email, TokenUseAccess, i.accessTTL)
	if err != nil {
		return nil, err
	}
	id, err := i.sign(userID, username, email, TokenUseID, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(userID, username, "", TokenUseRefresh, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenSet{AccessToken: access, IDToken: id, RefreshToken: refresh, ExpiresIn: i.accessTTL}, nil
}

func (i *Issuer) sign(userID, username, email, use string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Username: username,
		Email:    email,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", use, err)
	}
	return signed, nil
}

// Verify checks a token signed by this issuer. Only access tokens are accepted.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	return verify(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
}

// JWKSVerifier verifies tokens from a hosted identity provider.
type JWKSVerifier struct {
	jwks *keyfunc.JWKS
}

func NewJWKSVerifier(jwks *keyfunc.JWKS) *JWKSVerifier {
	return &JWKSVerifier{jwks: jwks}
}

// FetchJWKS downloads the provider's key set and keeps it refreshed in the
// background. Call EndBackground on the result when shutting down.
func FetchJWKS(url string, refresh time.Duration, onError func(error)) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:     refresh,
		RefreshUnknownKID:   true,
		RefreshErrorHandler: onError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	return jwks, nil
}

func (v *JWKSVerifier) Verify(raw string) (*Claims, error) {
	return verify(raw, v.jwks.Keyfunc)
}

func verify(raw string, keyFunc jwt.Keyfunc) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != TokenUseAccess {
		return nil, fmt.Errorf("%w: %q token used as access token", ErrInvalidToken, claims.TokenUse)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
