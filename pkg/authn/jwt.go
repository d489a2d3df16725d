// Package authn issues and validates JWTs for callers of the engine's
// REST facade.
package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptySubject  = errors.New("subject cannot be empty")
	ErrInvalidRole   = errors.New("invalid role")
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
)

// Roles recognized by the REST facade. Reader may Get/RangeSample,
// Writer may additionally Append/Delete, and Admin passes every role
// check. No route requires Admin, and /metrics is served without a token.
const (
	RoleReader = "reader"
	RoleWriter = "writer"
	RoleAdmin  = "admin"
)

var validRoles = map[string]bool{
	RoleReader: true,
	RoleWriter: true,
	RoleAdmin:  true,
}

// Claims identifies the caller and their permitted role.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// CanWrite reports whether the role may mutate engine state.
func (c Claims) CanWrite() bool {
	return c.Role == RoleWriter || c.Role == RoleAdmin
}

// CanAdmin reports whether the role may reach administrative endpoints.
func (c Claims) CanAdmin() bool {
	return c.Role == RoleAdmin
}

// Manager mints and validates HS256 JWTs.
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewManager returns a Manager signing with secret, which must be at
// least 32 bytes.
func NewManager(secret string, tokenDuration time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &Manager{secretKey: []byte(secret), tokenDuration: tokenDuration}, nil
}

// IssueToken mints a signed token for subject under role.
func (m *Manager) IssueToken(subject, role string) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	if !validRoles[role] {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenDuration)
	claims := jwt.MapClaims{
		"sub": subject,
		"role": role,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and checks tokenString, returning its Claims.
func (m *Manager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	subject, ok := claimsMap["sub"].(string)
	if !ok || subject == "" {
		return nil, fmt.Errorf("%w: missing or invalid sub", ErrInvalidClaims)
	}
	role, ok := claimsMap["role"].(string)
	if !ok || !validRoles[role] {
		return nil, fmt.Errorf("%w: missing or invalid role", ErrInvalidClaims)
	}
	expFloat, ok := claimsMap["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrInvalidClaims)
	}
	expiresAt := time.Unix(int64(expFloat), 0)
	if time.Now().After(expiresAt) {
		return nil, ErrExpiredToken
	}
	iatFloat, _ := claimsMap["iat"].(float64)

	return &Claims{
		Subject:   subject,
		Role:      role,
		ExpiresAt: expiresAt,
		IssuedAt:  time.Unix(int64(iatFloat), 0),
	}, nil
}
