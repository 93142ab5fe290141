package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "up-control-access"
	defaultTokenTTL = 12 * time.Hour
)

var errMissingSecret = errors.New("auth: token secret is not configured")

// Claims binds a bearer token to a session.
type Claims struct {
	SessionID string `json:"sid"`
	Profile   string `json:"profile"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens validates secret and returns a token signer.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), issuer: defaultIssuer, ttl: ttl, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for the session.
func (t *Tokens) Issue(sess Session) (string, time.Time, error) {
	if strings.TrimSpace(sess.ID) == "" || strings.TrimSpace(sess.UserID) == "" {
		return "", time.Time{}, errors.New("auth: session and user id are required")
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		SessionID: sess.ID,
		Profile:   string(sess.Profile),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the signature and required claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
