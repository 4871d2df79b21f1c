package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UserService coordinates user registration and identity management.
type UserService struct {
	users      repository.UserRepository
	identities repository.IdentityRepository
	groups     repository.GroupRepository
	userGroups repository.UserGroupsRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	enrich     *enricher
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo       repository.UserRepository
	IdentityRepo   repository.IdentityRepository
	GroupRepo      repository.GroupRepository
	UserGroupsRepo repository.UserGroupsRepository
	Cache          repository.ProfileCache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		identities: deps.IdentityRepo,
		groups:     deps.GroupRepo,
		userGroups: deps.UserGroupsRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		enrich: &enricher{
			users:  deps.UserRepo,
			groups: deps.GroupRepo,
			cache:  deps.Cache,
			logger: deps.Logger,
		},
	}
}

// Create registers a user under a caller-chosen id. The external identity is
// claimed first so two users can never share a provider identity.
func (s *UserService) Create(ctx context.Context, userID id.ID, cmd domain.CreateUser) (*domain.User, error) {
	if !cmd.Profile.Valid() {
		return nil, apperrors.NewValidationError("profile must carry exactly one identity provider")
	}

	if err := s.identities.Claim(ctx, cmd.Profile.IdentityKey(), userID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("identity already belongs to another user")
		}
		return nil, apperrors.NewInternalError(err)
	}

	user := domain.NewUser(userID, cmd.Profile)
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("user already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user created",
		zap.String("user_id", userID.String()),
		zap.String("identity", cmd.Profile.IdentityKey()))
	_ = s.dispatcher.Publish(ctx, events.UserSaved(userID, *user))
	return user, nil
}

// AddIdentity attaches an additional provider profile to an existing user.
// Each provider slot can be filled once.
func (s *UserService) AddIdentity(ctx context.Context, userID id.ID, cmd domain.AddUserIdentity) (*domain.User, error) {
	if !cmd.Profile.Valid() {
		return nil, apperrors.NewValidationError("profile must carry exactly one identity provider")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(err)
	}

	if !user.Identities.CanAdd(cmd.Profile) {
		return nil, apperrors.NewConflict("identity provider slot already filled")
	}

	if err := s.identities.Claim(ctx, cmd.Profile.IdentityKey(), userID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("identity already belongs to another user")
		}
		return nil, apperrors.NewInternalError(err)
	}

	user.Identities.Add(cmd.Profile)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("identity added",
		zap.String("user_id", userID.String()),
		zap.String("identity", cmd.Profile.IdentityKey()))
	_ = s.dispatcher.Publish(ctx, events.UserSaved(userID, *user))
	return user, nil
}

// LookupIdentity resolves an identity key ("telegram-123456") to the user
// owning it. Internal routes only.
func (s *UserService) LookupIdentity(ctx context.Context, identity string) (id.ID, error) {
	userID, err := s.identities.Lookup(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewNotFound("identity")
		}
		return "", apperrors.NewInternalError(err)
	}
	return userID, nil
}

// Get returns the full user view, identities included. Reserved for the
// user themselves and internal routes.
func (s *UserService) Get(ctx context.Context, userID id.ID) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Profile returns the public display projection of a user.
func (s *UserService) Profile(ctx context.Context, userID id.ID) (domain.UserProfile, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return user.Profile(), nil
}

// Groups lists the groups the user belongs to, enriched with the display
// profiles of every member referenced.
func (s *UserService) Groups(ctx context.Context, userID id.ID) (dto.WithUsers[[]domain.Group], error) {
	var out dto.WithUsers[[]domain.Group]

	groupIDs, err := s.userGroups.List(ctx, userID)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	groups := make([]domain.Group, 0, len(groupIDs))
	var memberIDs []id.ID
	for _, groupID := range groupIDs {
		group, err := s.groups.Get(ctx, groupID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("membership projection references missing group",
					zap.String("group_id", groupID.String()))
				continue
			}
			return out, apperrors.NewInternalError(err)
		}
		groups = append(groups, *group)
		memberIDs = append(memberIDs, group.Members...)
	}

	users, err := s.enrich.userProfiles(ctx, memberIDs)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	out.Users = users
	out.Payload = groups
	return out, nil
}
