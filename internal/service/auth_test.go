package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/auth"
)

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	e := newEnv(t)

	user, err := e.auth.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    "a@x.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" {
		t.Error("expected user to have an ID")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want trimmed %q", user.Username, "alice")
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", user.PasswordHash)
	}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	_, err := e.auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@x.com",
		Password: "secret1",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		message string
	}{
		{"missing username", RegisterInput{Email: "a@x.com", Password: "p"}, "Missing username or password"},
		{"blank username", RegisterInput{Username: "   ", Email: "a@x.com", Password: "p"}, "Missing username or password"},
		{"missing password", RegisterInput{Username: "alice", Email: "a@x.com"}, "Missing username or password"},
		{"missing email", RegisterInput{Username: "alice", Password: "p"}, "Email is required"},
		{"malformed email", RegisterInput{Username: "alice", Email: "nope", Password: "p"}, "Invalid email"},
		{"password too long", RegisterInput{Username: "alice", Email: "a@x.com", Password: strings.Repeat("é", 40)}, "Password must be 72 bytes or fewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.auth.Register(context.Background(), tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Message != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			if len(e.store.callsMatching("CreateUser")) != 0 {
				t.Error("invalid input must not reach the store")
			}
		})
	}
}

// =========================================================================
// Authenticate TESTS
// =========================================================================

func TestAuthenticate_IssuesTokenWithIdentity(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	result, err := e.auth.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Authenticate() returned empty token")
	}

	tokens, _ := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	id, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := auth.Identity{ID: alice.ID, Username: "alice", Email: "alice@x.com"}
	if id != want {
		t.Errorf("identity = %+v, want %+v", id, want)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	for _, tc := range []struct{ name, username, password string }{
		{"wrong password", "alice", "nope"},
		{"unknown user", "mallory", "secret1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.auth.Authenticate(context.Background(), tc.username, tc.password)
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Fatalf("error = %v, want ErrUnauthenticated", err)
			}
			if err.Error() != "Invalid username or password" {
				t.Errorf("message = %q, should not reveal which part was wrong", err.Error())
			}
		})
	}
}

func TestAuthenticate_MissingFields(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Authenticate(context.Background(), "", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// GetUserByID TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	got, err := e.auth.GetUserByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want alice", got.Username)
	}

	if _, err := e.auth.GetUserByID(context.Background(), "user-404"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := e.auth.GetUserByID(context.Background(), ""); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}
