package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	applog "daylog/internal/log"
	"daylog/internal/store"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLength = 8

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("daylog-dummy"), bcrypt.DefaultCost)

// Session is the result of a successful signup or signin.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Service handles account creation and credential verification.
type Service struct {
	users  store.UserStore
	cfg    Config
	logger *applog.Logger
	now    func() time.Time
}

func NewService(users store.UserStore, cfg Config, logger *applog.Logger) *Service {
	return &Service{
		users:  users,
		cfg:    cfg,
		logger: logger.WithComponent(applog.ComponentAuth),
		now:    time.Now,
	}
}

// SignUp creates an account and returns a fresh session.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return Session{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if errors.Is(err, store.ErrEmailTaken) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "account created",
		applog.FieldOperation, applog.OpSignUp,
		applog.FieldUserID, user.ID)
	return s.session(user)
}

// SignIn verifies credentials and returns a fresh session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a comparison so unknown emails cost the same as bad passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "signed in",
		applog.FieldOperation, applog.OpSignIn,
		applog.FieldUserID, user.ID)
	return s.session(user)
}

func (s *Service) session(user store.User) (Session, error) {
	now := s.now()
	token, err := Sign(user.ID, user.Email, s.cfg, now)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
