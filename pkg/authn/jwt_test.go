package authn

import (
	"context"
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager("too-short", time.Minute); err != ErrShortSecret {
		t.Errorf("expected ErrShortSecret, got %v", err)
	}
}

func TestIssueTokenValidation(t *testing.T) {
	m, err := NewManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tests := []struct {
		name      string
		subject   string
		role      string
		wantError error
	}{
		{"valid writer", "alice", RoleWriter, nil},
		{"valid reader", "bob", RoleReader, nil},
		{"valid admin", "carol", RoleAdmin, nil},
		{"empty subject", "", RoleReader, ErrEmptySubject},
		{"invalid role", "dave", "superuser", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.IssueToken(tt.subject, tt.role)
			if tt.wantError != nil {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token == "" {
				t.Fatal("expected a non-empty token")
			}
		})
	}
}

func TestValidateTokenRoundTrip(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.IssueToken("alice", RoleWriter)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("subject = %q, want alice", claims.Subject)
	}
	if claims.Role != RoleWriter {
		t.Errorf("role = %q, want %q", claims.Role, RoleWriter)
	}
	if !claims.CanWrite() {
		t.Error("expected writer role to CanWrite")
	}
	if claims.CanAdmin() {
		t.Error("expected writer role to not CanAdmin")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m, err := NewManager(testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.IssueToken("alice", RoleReader)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := m.ValidateToken(context.Background(), token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := m.ValidateToken(context.Background(), "not-a-jwt"); err == nil {
		t.Error("expected an error for a malformed token")
	}
	if _, err := m.ValidateToken(context.Background(), ""); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for empty string, got %v", err)
	}
}

func TestValidateTokenRejectsForgedSignature(t *testing.T) {
	m1, _ := NewManager(testSecret, time.Hour)
	m2, _ := NewManager("a-completely-different-secret-of-32-chars!!", time.Hour)

	token, err := m1.IssueToken("alice", RoleReader)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := m2.ValidateToken(context.Background(), token); err == nil {
		t.Error("expected signature validation to fail under a different secret")
	}
}
