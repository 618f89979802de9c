package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/config"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/repository"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

const (
	minPasswordLen = 8
	// bcrypt only accepts the first 72 bytes
	maxPasswordLen = 72
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Session is an issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a BUYER or SELLER account. Administrators are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.RoleBuyer
	}

	problems := map[string]any{}
	if name == "" {
		problems["name"] = "name is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		problems["email"] = "email is invalid"
	}
	switch {
	case len(password) < minPasswordLen:
		problems["password"] = "password must be at least 8 characters"
	case len(password) > maxPasswordLen:
		problems["password"] = "password must be at most 72 bytes"
	}
	if role != domain.RoleBuyer && role != domain.RoleSeller {
		problems["role"] = "role must be BUYER or SELLER"
	}
	if len(problems) > 0 {
		return nil, errorutil.NewValidationError("invalid registration", problems)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("email already registered", map[string]any{"email": email})
		}
		s.logger.Error("register user failed", zap.Error(err))
		return nil, errorutil.NewInternalError(err)
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewUnauthorized("invalid credentials")
		}
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, errorutil.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Me returns the account behind actor.
func (s *AuthService) Me(ctx context.Context, actor *domain.Actor) (*domain.User, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewUnauthorized("user not found")
		}
		return nil, errorutil.NewInternalError(err)
	}
	return user, nil
}

// EnsureAdmin creates or promotes the bootstrap administrator. Empty credentials skip it.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if len(password) > maxPasswordLen {
		return errors.New("bootstrap admin password must be at most 72 bytes")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return nil
		}
		existing.Role = domain.RoleAdmin
		existing.Verified = true
		if err := s.users.Update(ctx, existing); err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap administrator", zap.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{Name: "Administrator", Email: email, PasswordHash: hash, Role: domain.RoleAdmin, Verified: true}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("created bootstrap administrator", zap.String("user_id", admin.ID))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}
