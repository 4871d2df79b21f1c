package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

var (
	// ErrNotFound signals a missing aggregate or listing entry.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals an insert against an occupied id.
	ErrAlreadyExists = errors.New("already exists")
)

// Store hands out the repository views of one backing store.
type Store interface {
	Users() UserRepository
	Identities() IdentityRepository
	Groups() GroupRepository
	Tickets() TicketRepository
	Uploads() UploadRepository
	TicketListings() TicketListingRepository
	UserGroups() UserGroupsRepository
}

// UserRepository persists user views.
type UserRepository interface {
	Insert(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, userID id.ID) (*domain.User, error)
}

// IdentityRepository is the unique index from external identity keys
// (e.g. "telegram-123456") to the user owning them.
type IdentityRepository interface {
	// Claim reserves the identity for the user, ErrAlreadyExists when some
	// user already holds it.
	Claim(ctx context.Context, identity string, userID id.ID) error
	Lookup(ctx context.Context, identity string) (id.ID, error)
}

// GroupRepository persists group views.
type GroupRepository interface {
	Insert(ctx context.Context, group *domain.Group) error
	Update(ctx context.Context, group *domain.Group) error
	Get(ctx context.Context, groupID id.ID) (*domain.Group, error)
}

// TicketRepository persists ticket views.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, ticketID id.ID) (*domain.Ticket, error)
}

// UploadRepository persists upload state.
type UploadRepository interface {
	Insert(ctx context.Context, upload *domain.Upload) error
	Update(ctx context.Context, upload *domain.Upload) error
	Get(ctx context.Context, uploadID id.ID) (*domain.Upload, error)
}

// ListingKind discriminates the per-user ticket listings.
type ListingKind string

const (
	ListingOwned    ListingKind = "owned"
	ListingAssigned ListingKind = "assigned"
	ListingGroup    ListingKind = "group"
)

// TicketListingRepository maintains the ticket listing projections: owned
// and assigned are keyed by user id, group by the destination group id.
// Add and Remove are idempotent.
type TicketListingRepository interface {
	Add(ctx context.Context, kind ListingKind, userID, ticketID id.ID) error
	Remove(ctx context.Context, kind ListingKind, userID, ticketID id.ID) error
	List(ctx context.Context, kind ListingKind, userID id.ID) ([]id.ID, error)
}

// UserGroupsRepository maintains the groups-of-a-user projection.
type UserGroupsRepository interface {
	Add(ctx context.Context, userID, groupID id.ID) error
	Remove(ctx context.Context, userID, groupID id.ID) error
	List(ctx context.Context, userID id.ID) ([]id.ID, error)
}

// ProfileCache fronts enrichment lookups with a shared cache. Both methods
// are best-effort: a miss or a cache failure falls back to the repository.
type ProfileCache interface {
	GetUserProfile(ctx context.Context, userID id.ID) (*domain.UserProfile, bool)
	SetUserProfile(ctx context.Context, profile domain.UserProfile)
	GetGroupProfile(ctx context.Context, groupID id.ID) (*domain.GroupProfile, bool)
	SetGroupProfile(ctx context.Context, profile domain.GroupProfile)
}
