package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// Supported signing algorithms. Only HMAC is accepted: the secret is shared
// by every server process and never leaves it.
var signingMethods = map[string]*jwt.SigningMethodHMAC{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// ErrUnsupportedAlgorithm is returned by NewTokenService for unknown algorithms.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// TokenService issues and decodes signed session tokens carrying the user id
// in the "sub" claim.
type TokenService struct {
	secret   []byte
	method   *jwt.SigningMethodHMAC
	validity time.Duration
	clock    clockwork.Clock
}

// NewTokenService checks the configuration once so that a bad secret or
// algorithm fails at startup rather than on the first request.
func NewTokenService(secret []byte, algorithm string, validity time.Duration, clock clockwork.Clock) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if validity <= 0 {
		return nil, fmt.Errorf("token validity must be positive, got %s", validity)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &TokenService{secret: secret, method: method, validity: validity, clock: clock}, nil
}

// Validity returns the configured token lifetime.
func (s *TokenService) Validity() time.Duration {
	return s.validity
}

// Issue signs a token for subjectID that expires at expiresAt.
func (s *TokenService) Issue(subjectID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(s.method, jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// IssueFor signs a token for subjectID valid for the configured lifetime.
func (s *TokenService) IssueFor(subjectID string) (string, error) {
	return s.Issue(subjectID, s.clock.Now().Add(s.validity))
}

// Decode verifies the signature and expiry and returns the subject.
// Every failure matches common.ErrInvalidToken; expired tokens also match
// common.ErrTokenExpired.
func (s *TokenService) Decode(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
