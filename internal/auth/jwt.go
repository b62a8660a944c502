package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "merch-storefront"

// Claims represents session token claims
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// SessionTokens signs and validates the tokens that bind a browser to a checkout session
type SessionTokens struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewSessionTokens(secretKey string, expiry time.Duration) *SessionTokens {
	return &SessionTokens{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Issue creates a token for a fresh session id
func (s *SessionTokens) Issue() (token, sessionID string, expiresAt time.Time, err error) {
	sessionID = uuid.NewString()
	token, expiresAt, err = s.IssueFor(sessionID)
	return token, sessionID, expiresAt, err
}

// IssueFor creates a token for an existing session id
func (s *SessionTokens) IssueFor(sessionID string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.expiry)

	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
			Subject:   sessionID,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Validate checks a token and returns its claims
func (s *SessionTokens) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Expiry returns the token lifetime
func (s *SessionTokens) Expiry() time.Duration {
	return s.expiry
}
