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

// GroupService coordinates group membership and the group ticket feed.
type GroupService struct {
	groups     repository.GroupRepository
	users      repository.UserRepository
	userGroups repository.UserGroupsRepository
	tickets    repository.TicketRepository
	listings   repository.TicketListingRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	enrich     *enricher
}

// GroupDependencies bundles repositories for the group service.
type GroupDependencies struct {
	GroupRepo      repository.GroupRepository
	UserRepo       repository.UserRepository
	UserGroupsRepo repository.UserGroupsRepository
	TicketRepo     repository.TicketRepository
	ListingRepo    repository.TicketListingRepository
	Cache          repository.ProfileCache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewGroupService constructs the service.
func NewGroupService(deps GroupDependencies) *GroupService {
	return &GroupService{
		groups:     deps.GroupRepo,
		users:      deps.UserRepo,
		userGroups: deps.UserGroupsRepo,
		tickets:    deps.TicketRepo,
		listings:   deps.ListingRepo,
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

// Create registers a group under a caller-chosen id with the creator as its
// first member.
func (s *GroupService) Create(ctx context.Context, groupID id.ID, creator id.ID, cmd domain.CreateGroup) (*domain.Group, error) {
	if cmd.Title == "" {
		return nil, apperrors.NewValidationError("group title must not be empty")
	}

	group := domain.NewGroup(groupID, creator, cmd.Title)
	if err := s.groups.Insert(ctx, group); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("group already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.userGroups.Add(ctx, creator, groupID); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("group created",
		zap.String("group_id", groupID.String()),
		zap.String("creator", creator.String()))
	_ = s.dispatcher.Publish(ctx, events.GroupSaved(groupID, *group))
	return group, nil
}

// Update applies one mutation command. Only current members may mutate a
// group.
func (s *GroupService) Update(ctx context.Context, groupID id.ID, performer id.ID, update domain.GroupUpdate) (*domain.Group, error) {
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("group")
		}
		return nil, apperrors.NewInternalError(err)
	}

	if !group.HasMember(performer) {
		return nil, apperrors.NewForbidden("only group members may modify the group")
	}

	switch {
	case update.AddMember != nil:
		newMember := update.AddMember.NewMember
		if _, err := s.users.Get(ctx, newMember); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("user")
			}
			return nil, apperrors.NewInternalError(err)
		}
		group.AddMember(newMember)
		if err := s.userGroups.Add(ctx, newMember, groupID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	case update.RemoveMember != nil:
		removed := update.RemoveMember.RemovedMember
		group.RemoveMember(removed)
		if err := s.userGroups.Remove(ctx, removed, groupID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	case update.ChangeTitle != nil:
		if update.ChangeTitle.NewTitle == "" {
			return nil, apperrors.NewValidationError("group title must not be empty")
		}
		group.Title = update.ChangeTitle.NewTitle
	default:
		return nil, apperrors.NewValidationError("group update carries no command")
	}

	if err := s.groups.Update(ctx, group); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	// renames must not wait out the cached profile TTL
	if s.enrich.cache != nil {
		s.enrich.cache.SetGroupProfile(ctx, group.Profile())
	}
	_ = s.dispatcher.Publish(ctx, events.GroupSaved(groupID, *group))
	return group, nil
}

// Get returns the group enriched with member display profiles.
func (s *GroupService) Get(ctx context.Context, groupID id.ID) (dto.WithUsers[domain.Group], error) {
	var out dto.WithUsers[domain.Group]

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, apperrors.NewNotFound("group")
		}
		return out, apperrors.NewInternalError(err)
	}

	users, err := s.enrich.userProfiles(ctx, group.Members)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	out.Users = users
	out.Payload = *group
	return out, nil
}

// Tickets lists every ticket addressed to the group, newest activity first,
// enriched with all referenced profiles. Only members may read the feed.
func (s *GroupService) Tickets(ctx context.Context, groupID id.ID, performer id.ID) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	var out dto.WithGroupsAndUsers[[]domain.TicketListItem]

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, apperrors.NewNotFound("group")
		}
		return out, apperrors.NewInternalError(err)
	}
	if !group.HasMember(performer) {
		return out, apperrors.NewForbidden("only group members may list group tickets")
	}

	ticketIDs, err := s.listings.List(ctx, repository.ListingGroup, groupID)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	items, userIDs, groupIDs, err := s.loadListItems(ctx, ticketIDs)
	if err != nil {
		return out, err
	}

	users, err := s.enrich.userProfiles(ctx, userIDs)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}
	groups, err := s.enrich.groupProfiles(ctx, groupIDs)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	out.Users = users
	out.Groups = groups
	out.Payload = items
	return out, nil
}

func (s *GroupService) loadListItems(ctx context.Context, ticketIDs []id.ID) ([]domain.TicketListItem, []id.ID, []id.ID, error) {
	items := make([]domain.TicketListItem, 0, len(ticketIDs))
	var userIDs, groupIDs []id.ID
	for _, ticketID := range ticketIDs {
		ticket, err := s.tickets.Get(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("listing references missing ticket",
					zap.String("ticket_id", ticketID.String()))
				continue
			}
			return nil, nil, nil, apperrors.NewInternalError(err)
		}
		item := ticket.ListItem()
		items = append(items, item)
		u, g := ticketRefs(item, nil)
		userIDs = append(userIDs, u...)
		groupIDs = append(groupIDs, g...)
	}
	sortByLatestUpdate(items)
	return items, userIDs, groupIDs, nil
}
