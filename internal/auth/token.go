package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/userhub/apiserver/config"
)

// DefaultTokenTTL applies when the configuration does not set a lifetime.
const DefaultTokenTTL = 30 * time.Minute

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenService signs and parses stateless access tokens with a process-wide
// symmetric secret. Rotating the secret invalidates every outstanding token.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates cfg and builds a TokenService from it.
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		secret:     []byte(cfg.SecretKey),
		method:     method,
		defaultTTL: ttl,
		now:        time.Now,
	}, nil
}

// DefaultTTL returns the lifetime used by Issue.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue signs a token for subject that expires after the default TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	return s.IssueWithTTL(subject, s.defaultTTL)
}

// IssueWithTTL signs a token for subject that expires after ttl. A ttl of
// zero or less produces a token that is already expired.
func (s *TokenService) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}

// Parse verifies signature, algorithm and expiry, and returns the claims.
// Every structural or cryptographic failure is reported as ErrInvalidToken;
// a token without a subject is reported as ErrMissingSubject.
func (s *TokenService) Parse(tokenString string) (Claims, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrMissingSubject
	}

	return Claims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
