package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// usernamePattern matches what @mentions can address.
var usernamePattern = regexp.MustCompile(`^\w{3,32}$`)

// TokenIssuer signs session tokens. *auth.TokenIssuer satisfies it.
type TokenIssuer interface {
	Issue(userID uuid.UUID, username, email string) (string, time.Time, error)
}

// RegisterRequest is the input to AccountService.Register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned on successful registration or login.
type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      models.UserSummary `json:"user"`
}

// AccountService handles sign-up and sign-in.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	// Login returns apperrors.ErrInvalidCredentials for an unknown email and
	// for a wrong password alike.
	Login(ctx context.Context, email, password string) (*Session, error)
}

type accountService struct {
	userRepo repositories.UserRepository
	tokens   TokenIssuer
	logger   *zap.Logger
	now      func() time.Time
}

var _ AccountService = (*accountService)(nil)

// NewAccountService creates an AccountService.
func NewAccountService(userRepo repositories.UserRepository, tokens TokenIssuer, logger *zap.Logger) AccountService {
	return &accountService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.Named("accounts"),
		now:      time.Now,
	}
}

func (s *accountService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-32 letters, digits or underscores", apperrors.ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: email is not valid", apperrors.ErrInvalidInput)
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidInput, auth.MinPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AccountRole:  models.AccountRoleAnalyst,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: email or username already registered", apperrors.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Registered user",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return s.session(user)
}

func (s *accountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("Password mismatch", zap.String("user_id", user.ID.String()))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("Failed to record last login",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	return s.session(user)
}

func (s *accountService) session(user *models.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: user.Summary()}, nil
}
