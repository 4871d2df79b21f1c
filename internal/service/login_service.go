package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// LoginService resolves login attempts to user profiles. Cookie issuance
// stays with the HTTP layer.
type LoginService struct {
	users          repository.UserRepository
	identities     repository.IdentityRepository
	userService    *UserService
	telegramSecret [32]byte
	telegramReady  bool
	freshness      time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// LoginDependencies bundles collaborators for the login service.
type LoginDependencies struct {
	UserRepo     repository.UserRepository
	IdentityRepo repository.IdentityRepository
	UserService  *UserService
	Auth         config.AuthConfig
	Logger       *zap.Logger

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewLoginService constructs the service.
func NewLoginService(deps LoginDependencies) *LoginService {
	secret, ready := deps.Auth.TelegramSecret()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &LoginService{
		users:          deps.UserRepo,
		identities:     deps.IdentityRepo,
		userService:    deps.UserService,
		telegramSecret: secret,
		telegramReady:  ready,
		freshness:      deps.Auth.LoginFreshness(),
		logger:         deps.Logger,
		now:            now,
	}
}

// FakeLogin logs in as an arbitrary existing user. Only reachable through
// the internal routes.
func (s *LoginService) FakeLogin(ctx context.Context, userID id.ID) (domain.UserProfile, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.UserProfile{}, apperrors.NewNotFound("user")
		}
		return domain.UserProfile{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("fake login", zap.String("user_id", userID.String()))
	return user.Profile(), nil
}

// TelegramLogin verifies the widget payload and resolves it to a user,
// registering one on first login.
func (s *LoginService) TelegramLogin(ctx context.Context, data auth.TelegramLoginData) (domain.UserProfile, error) {
	if !s.telegramReady {
		s.logger.Error("telegram login attempted but no bot token is configured")
		return domain.UserProfile{}, apperrors.NewInternalError(errors.New("telegram login not configured"))
	}

	if err := auth.ValidateTelegramLogin(data, s.telegramSecret, s.freshness, s.now()); err != nil {
		s.logger.Warn("telegram login rejected", zap.Error(err))
		return domain.UserProfile{}, apperrors.NewUnauthorized("invalid telegram login data")
	}

	profile := domain.ExternalUserProfile{Telegram: &data.TelegramProfile}

	userID, err := s.identities.Lookup(ctx, profile.IdentityKey())
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		userID = id.Generate()
		s.logger.Info("registering user from telegram profile",
			zap.String("user_id", userID.String()),
			zap.Int64("telegram_id", data.TelegramProfile.ID))
		if _, err := s.userService.Create(ctx, userID, domain.CreateUser{Profile: profile}); err != nil {
			return domain.UserProfile{}, err
		}
	default:
		return domain.UserProfile{}, apperrors.NewInternalError(err)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("telegram login", zap.String("user_id", userID.String()))
	return user.Profile(), nil
}
