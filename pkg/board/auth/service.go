// Package auth covers administrator login, user registration, bearer token
// handling and user management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-board/pkg/board"
)

// LoginRequest contains admin credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains parameters for registering a user
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=100"`
}

// RegisterResponse echoes the registered account
type RegisterResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UpdateUserRequest is a partial user update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Service defines account and session operations
type Service interface {
	AdminLogin(ctx context.Context, req LoginRequest) (*TokenPair, error)
	RegisterUser(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)

	// Authorize resolves the subject of a verified token to an active admin
	Authorize(ctx context.Context, uid string) (*board.User, error)

	GetUser(ctx context.Context, uid string) (*board.User, error)
	UpdateUser(ctx context.Context, uid string, req UpdateUserRequest) (*board.User, error)
	DeleteUser(ctx context.Context, uid string) error

	// EnsureAdmin creates or promotes the account so it can log in as admin
	EnsureAdmin(ctx context.Context, email, password, name string) (*board.User, error)
}

type service struct {
	users    board.UserStore
	identity IdentityProvider
	tokens   *TokenIssuer
	logger   *slog.Logger
	clock    func() time.Time
	location *time.Location
}

// Option configures the auth service
type Option func(*service)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithLocation sets the zone user timestamps are recorded in
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		s.location = loc
	}
}

// New creates the auth service
func New(users board.UserStore, identity IdentityProvider, tokens *TokenIssuer, opts ...Option) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	s := &service{
		users:    users,
		identity: identity,
		tokens:   tokens,
		logger:   slog.Default(),
		clock:    time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) now() time.Time {
	return s.clock().In(s.location).Truncate(time.Microsecond)
}

// getUser loads a profile with its timestamps in the service's zone.
func (s *service) getUser(ctx context.Context, uid string) (*board.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.In(s.location)
	user.UpdatedAt = user.UpdatedAt.In(s.location)
	return user, nil
}

func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if err := board.ValidateStruct(req); err != nil {
		return nil, err
	}

	uid, err := s.identity.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("Admin login rejected", "email", req.Email)
		}
		return nil, err
	}

	user, err := s.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	tokens, err := s.tokens.Issue(uid)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin logged in", "uid", uid)
	return tokens, nil
}

func (s *service) RegisterUser(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := board.ValidateStruct(req); err != nil {
		return nil, err
	}

	uid, err := s.identity.CreateAccount(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	if err := s.createProfile(ctx, uid, req.Email, req.Name, false); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "uid", uid)
	return &RegisterResponse{Email: req.Email, Name: req.Name}, nil
}

func (s *service) createProfile(ctx context.Context, uid, email, name string, admin bool) error {
	now := s.now()
	err := s.users.CreateUser(ctx, &board.User{
		UID:       uid,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		IsAdmin:   admin,
		IsActive:  true,
		State:     board.StateActive,
	})
	if errors.Is(err, board.ErrUserExists) {
		return ErrEmailExists
	}
	return err
}

func (s *service) Authorize(ctx context.Context, uid string) (*board.User, error) {
	user, err := s.getUser(ctx, uid)
	if err != nil {
		if errors.Is(err, board.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *service) GetUser(ctx context.Context, uid string) (*board.User, error) {
	return s.getUser(ctx, uid)
}

func (s *service) UpdateUser(ctx context.Context, uid string, req UpdateUserRequest) (*board.User, error) {
	if req.Name != nil && *req.Name == "" {
		req.Name = nil
	}
	if err := board.ValidateStruct(req); err != nil {
		return nil, err
	}
	current, err := s.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Microsecond)
	}
	patch := board.UserPatch{
		Name:      req.Name,
		IsAdmin:   req.IsAdmin,
		IsActive:  req.IsActive,
		UpdatedAt: &now,
	}
	if err := s.users.UpdateUser(ctx, uid, patch); err != nil {
		return nil, err
	}

	s.logger.Info("User updated", "uid", uid)
	return s.getUser(ctx, uid)
}

func (s *service) DeleteUser(ctx context.Context, uid string) error {
	if _, err := s.getUser(ctx, uid); err != nil {
		return err
	}

	deleted := board.StateSoftDeleted
	if err := s.users.UpdateUser(ctx, uid, board.UserPatch{State: &deleted}); err != nil {
		return err
	}
	s.logger.Info("User deleted", "uid", uid)
	return nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password, name string) (*board.User, error) {
	uid, err := s.identity.SignInWithPassword(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		uid, err = s.identity.CreateAccount(ctx, email, password, name)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin account: %w", err)
	}

	user, err := s.getUser(ctx, uid)
	switch {
	case errors.Is(err, board.ErrUserNotFound):
		if err := s.createProfile(ctx, uid, email, name, true); err != nil {
			return nil, fmt.Errorf("bootstrap admin profile: %w", err)
		}
	case err != nil:
		return nil, err
	case !user.IsAdmin || !user.IsActive:
		yes := true
		if err := s.users.UpdateUser(ctx, uid, board.UserPatch{IsAdmin: &yes, IsActive: &yes}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Admin account ready", "uid", uid, "email", email)
	return s.getUser(ctx, uid)
}
