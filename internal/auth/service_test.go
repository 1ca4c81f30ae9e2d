package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	applog "daylog/internal/log"
	"daylog/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewService(memory.New(), testConfig(), logger)
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	up, err := svc.SignUp(ctx, "Me@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if up.Email != "me@example.com" {
		t.Errorf("Email = %q, want lowercased", up.Email)
	}
	if up.Token == "" || up.UserID == "" {
		t.Errorf("session missing token or user id: %+v", up)
	}

	in, err := svc.SignIn(ctx, "me@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if in.UserID != up.UserID {
		t.Errorf("SignIn user %q, want %q", in.UserID, up.UserID)
	}

	claims, err := Parse(in.Token, testConfig())
	if err != nil {
		t.Fatalf("token from SignIn does not parse: %v", err)
	}
	if claims.UserID != up.UserID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, up.UserID)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"no at sign", "example.com", "long-enough", ErrInvalidEmail},
		{"no domain dot", "me@localhost", "long-enough", ErrInvalidEmail},
		{"empty email", "", "long-enough", ErrInvalidEmail},
		{"short password", "me@example.com", "short", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.email, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("SignUp(%q, %q) = %v, want %v", tt.email, tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "me@example.com", "correct-horse"); err != nil {
		t.Fatalf("first SignUp() error: %v", err)
	}
	if _, err := svc.SignUp(ctx, "ME@example.com", "other-password"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("second SignUp() = %v, want ErrEmailTaken", err)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "me@example.com", "correct-horse"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	if _, err := svc.SignIn(ctx, "me@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn(wrong password) = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn(unknown email) = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc := newTestService(t)
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	sess, err := svc.SignUp(context.Background(), "me@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if want := fixed.Add(time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, want)
	}
}
