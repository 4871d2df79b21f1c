package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle and its listings.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	groups     repository.GroupRepository
	listings   repository.TicketListingRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	enrich     *enricher
	now        func() time.Time
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	GroupRepo   repository.GroupRepository
	ListingRepo repository.TicketListingRepository
	Cache       repository.ProfileCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		groups:     deps.GroupRepo,
		listings:   deps.ListingRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
		enrich: &enricher{
			users:  deps.UserRepo,
			groups: deps.GroupRepo,
			cache:  deps.Cache,
			logger: deps.Logger,
		},
	}
}

// Create opens a ticket under a caller-chosen id. The destination must
// exist; a user destination is assigned the ticket immediately. The body
// becomes the first timeline message.
func (s *TicketService) Create(ctx context.Context, ticketID id.ID, owner id.ID, cmd domain.CreateTicket) (*domain.Ticket, error) {
	if cmd.Title == "" {
		return nil, apperrors.NewValidationError("ticket title must not be empty")
	}
	if cmd.Body == "" {
		return nil, apperrors.NewValidationError("ticket body must not be empty")
	}

	switch cmd.Destination.Type {
	case domain.DestinationUser:
		if _, err := s.users.Get(ctx, cmd.Destination.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("destination user")
			}
			return nil, apperrors.NewInternalError(err)
		}
	case domain.DestinationGroup:
		if _, err := s.groups.Get(ctx, cmd.Destination.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("destination group")
			}
			return nil, apperrors.NewInternalError(err)
		}
	default:
		return nil, apperrors.NewValidationError("destination type must be User or Group")
	}

	ticket := domain.NewTicket(ticketID, owner, cmd, s.now())
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("ticket already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.listings.Add(ctx, repository.ListingOwned, owner, ticketID); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	switch cmd.Destination.Type {
	case domain.DestinationUser:
		if err := s.listings.Add(ctx, repository.ListingAssigned, cmd.Destination.ID, ticketID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	case domain.DestinationGroup:
		if err := s.listings.Add(ctx, repository.ListingGroup, cmd.Destination.ID, ticketID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticketID.String()),
		zap.String("owner", owner.String()),
		zap.String("destination", string(cmd.Destination.Type)))
	_ = s.dispatcher.Publish(ctx, events.TicketSaved(ticketID, *ticket))
	return ticket, nil
}

// Update applies one mutation command. Messages are open to any
// authenticated user; status and assignee changes require the performer to
// be the destination user or a member of the destination group.
func (s *TicketService) Update(ctx context.Context, ticketID id.ID, performer id.ID, update domain.TicketUpdate) (*domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.NewInternalError(err)
	}

	switch {
	case update.SendMessage != nil:
		if update.SendMessage.Body == "" {
			return nil, apperrors.NewValidationError("message body must not be empty")
		}
		ticket.AppendMessage(performer, update.SendMessage.Body, s.now())

	case update.ChangeStatus != nil:
		if !domain.KnownStatus(update.ChangeStatus.NewStatus) {
			return nil, apperrors.NewValidationError("unknown ticket status")
		}
		if err := s.authorizeManage(ctx, ticket, performer); err != nil {
			return nil, err
		}
		ticket.ChangeStatus(update.ChangeStatus.NewStatus, s.now())

	case update.ChangeAssignee != nil:
		if err := s.authorizeManage(ctx, ticket, performer); err != nil {
			return nil, err
		}
		newAssignee := update.ChangeAssignee.NewAssignee
		if newAssignee != nil {
			if _, err := s.users.Get(ctx, *newAssignee); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, apperrors.NewNotFound("assignee user")
				}
				return nil, apperrors.NewInternalError(err)
			}
		}
		old := ticket.Assignee
		ticket.ChangeAssignee(newAssignee, s.now())
		if old != nil {
			if err := s.listings.Remove(ctx, repository.ListingAssigned, *old, ticketID); err != nil {
				return nil, apperrors.NewInternalError(err)
			}
		}
		if newAssignee != nil {
			if err := s.listings.Add(ctx, repository.ListingAssigned, *newAssignee, ticketID); err != nil {
				return nil, apperrors.NewInternalError(err)
			}
		}

	default:
		return nil, apperrors.NewValidationError("ticket update carries no command")
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	_ = s.dispatcher.Publish(ctx, events.TicketSaved(ticketID, *ticket))
	return ticket, nil
}

// authorizeManage allows the destination user, or any member of the
// destination group, to manage the ticket.
func (s *TicketService) authorizeManage(ctx context.Context, ticket *domain.Ticket, performer id.ID) error {
	switch ticket.Destination.Type {
	case domain.DestinationUser:
		if ticket.Destination.ID == performer {
			return nil
		}
	case domain.DestinationGroup:
		group, err := s.groups.Get(ctx, ticket.Destination.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("destination group")
			}
			return apperrors.NewInternalError(err)
		}
		if group.HasMember(performer) {
			return nil
		}
	}
	return apperrors.NewForbidden("only the destination may manage the ticket")
}

// Get returns the full ticket view with its timeline, enriched with every
// referenced user and group profile.
func (s *TicketService) Get(ctx context.Context, ticketID id.ID) (dto.WithGroupsAndUsers[domain.Ticket], error) {
	var out dto.WithGroupsAndUsers[domain.Ticket]

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, apperrors.NewNotFound("ticket")
		}
		return out, apperrors.NewInternalError(err)
	}

	userIDs, groupIDs := ticketRefs(ticket.ListItem(), ticket.Timeline)
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
	out.Payload = *ticket
	return out, nil
}

// Owned lists the caller's created tickets, newest activity first.
func (s *TicketService) Owned(ctx context.Context, userID id.ID) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	return s.listing(ctx, repository.ListingOwned, userID)
}

// Assigned lists the tickets currently assigned to the caller, newest
// activity first.
func (s *TicketService) Assigned(ctx context.Context, userID id.ID) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	return s.listing(ctx, repository.ListingAssigned, userID)
}

func (s *TicketService) listing(ctx context.Context, kind repository.ListingKind, userID id.ID) (dto.WithGroupsAndUsers[[]domain.TicketListItem], error) {
	var out dto.WithGroupsAndUsers[[]domain.TicketListItem]

	ticketIDs, err := s.listings.List(ctx, kind, userID)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

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
			return out, apperrors.NewInternalError(err)
		}
		item := ticket.ListItem()
		items = append(items, item)
		u, g := ticketRefs(item, nil)
		userIDs = append(userIDs, u...)
		groupIDs = append(groupIDs, g...)
	}
	sortByLatestUpdate(items)

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

func sortByLatestUpdate(items []domain.TicketListItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LatestUpdate.After(items[j].LatestUpdate)
	})
}
