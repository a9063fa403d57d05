package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/journeyhub/internal/apperror"
)

func TestCheck_Messages(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantField string
		wantMsg   string
	}{
		{
			name:      "required uses the json name",
			in:        RegisterInput{Email: "a@x.com", Password: "secret1"},
			wantField: "username",
			wantMsg:   "username is required",
		},
		{
			name:      "email",
			in:        RegisterInput{Username: "alice", Email: "nope", Password: "secret1"},
			wantField: "email",
			wantMsg:   "Invalid email",
		},
		{
			name:      "max",
			in:        RegisterInput{Username: strings.Repeat("a", 65), Email: "a@x.com", Password: "secret1"},
			wantField: "username",
			wantMsg:   "username must be at most 64 characters",
		},
		{
			name:      "gte",
			in:        CreateCampgroundInput{Title: "t", Location: "l", Price: -1},
			wantField: "price",
			wantMsg:   "price must be 0 or more",
		},
		{
			name:      "nil pointers are skipped",
			in:        UpdateCampgroundInput{Description: strPtr(strings.Repeat("d", 5001))},
			wantField: "description",
			wantMsg:   "description must be at most 5000 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(tt.in, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("check() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			errors.As(err, &appErr)
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestCheck_Valid(t *testing.T) {
	if err := check(UpdateCampgroundInput{}, ""); err != nil {
		t.Errorf("empty update should pass, got %v", err)
	}
	if err := check(RegisterInput{Username: "alice", Email: "a@x.com", Password: "x"}, ""); err != nil {
		t.Errorf("valid registration should pass, got %v", err)
	}
}

func TestCheck_MessageOverride(t *testing.T) {
	err := check(RegisterInput{}, "Missing username or password")

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %v", err)
	}
	if appErr.Message != "Missing username or password" {
		t.Errorf("Message = %q", appErr.Message)
	}
}
