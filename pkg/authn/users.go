package authn

import (
	"errors"
	"regexp"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrInvalidUsername = errors.New("username must be 3-50 letters, digits, underscores or hyphens")
	ErrWrongPassword = errors.New("wrong password")
)

const (
	minPasswordLength = 8
	bcryptCost        = 12
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// credential is one user's stored login material: a username, its
// bcrypt hash, and the role to embed in tokens issued for it.
type credential struct {
	username     string
	passwordHash string
	role         string
}

// UserStore holds password credentials in memory and issues JWTs for
// successful logins through a Manager. It exists so the REST facade can
// offer a username/password login endpoint alongside tokens minted
// out-of-band by an operator.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]credential
	manager *Manager
}

// NewUserStore returns an empty UserStore that issues tokens via manager.
func NewUserStore(manager *Manager) *UserStore {
	return &UserStore{users: make(map[string]credential), manager: manager}
}

// CreateUser registers a new username/password credential under role.
func (s *UserStore) CreateUser(username, password, role string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	if !validRoles[role] {
		return ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = credential{username: username, passwordHash: string(hash), role: role}
	return nil
}

// Login verifies username/password and, on success, mints a token for
// the user's role.
func (s *UserStore) Login(username, password string) (string, error) {
	s.mu.RLock()
	cred, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return "", ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.passwordHash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}
	return s.manager.IssueToken(cred.username, cred.role)
}
