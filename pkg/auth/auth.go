// Package auth checks the shop operator's credentials and issues session tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost defines the bcrypt work factor.
const bcryptCost = 12

var (
	// ErrInvalidCredentials indicates a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// CredentialProvider verifies a login attempt.
type CredentialProvider interface {
	Authenticate(username, password string) error
}

// SessionProvider issues and verifies session tokens.
type SessionProvider interface {
	Issue(username string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*Claims, error)
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// StaticCredentials accepts a single configured operator account.
type StaticCredentials struct {
	username     string
	passwordHash []byte
}

func NewStaticCredentials(username, passwordHash string) *StaticCredentials {
	return &StaticCredentials{username: username, passwordHash: []byte(passwordHash)}
}

func (c *StaticCredentials) Authenticate(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// Claims defines JWT claims for an operator session.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTSessions signs HS256 session tokens.
type JWTSessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTSessions(secret string, ttl time.Duration) *JWTSessions {
	return &JWTSessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for username that expires after the configured TTL.
func (s *JWTSessions) Issue(username string) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify validates a token and returns its claims.
func (s *JWTSessions) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
