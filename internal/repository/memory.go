package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// Memory bundles in-memory implementations of every repository interface.
// It backs tests and local development without external services.
type Memory struct {
	mu sync.RWMutex

	users      map[id.ID]domain.User
	identities map[string]id.ID
	groups     map[id.ID]domain.Group
	tickets    map[id.ID]domain.Ticket
	uploads    map[id.ID]domain.Upload
	listings   map[listingKey][]id.ID
	userGroups map[id.ID][]id.ID
}

type listingKey struct {
	kind ListingKind
	user id.ID
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[id.ID]domain.User),
		identities: make(map[string]id.ID),
		groups:     make(map[id.ID]domain.Group),
		tickets:    make(map[id.ID]domain.Ticket),
		uploads:    make(map[id.ID]domain.Upload),
		listings:   make(map[listingKey][]id.ID),
		userGroups: make(map[id.ID][]id.ID),
	}
}

// Users returns the user repository view of the store.
func (m *Memory) Users() UserRepository { return (*memoryUsers)(m) }

// Identities returns the identity index view of the store.
func (m *Memory) Identities() IdentityRepository { return (*memoryIdentities)(m) }

// Groups returns the group repository view of the store.
func (m *Memory) Groups() GroupRepository { return (*memoryGroups)(m) }

// Tickets returns the ticket repository view of the store.
func (m *Memory) Tickets() TicketRepository { return (*memoryTickets)(m) }

// Uploads returns the upload repository view of the store.
func (m *Memory) Uploads() UploadRepository { return (*memoryUploads)(m) }

// TicketListings returns the listing projection view of the store.
func (m *Memory) TicketListings() TicketListingRepository { return (*memoryListings)(m) }

// UserGroups returns the user-groups projection view of the store.
func (m *Memory) UserGroups() UserGroupsRepository { return (*memoryUserGroups)(m) }

type memoryUsers Memory

func (m *memoryUsers) Insert(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return ErrAlreadyExists
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return ErrNotFound
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *memoryUsers) Get(_ context.Context, userID id.ID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := copyUser(&user)
	return &cpy, nil
}

type memoryIdentities Memory

func (m *memoryIdentities) Claim(_ context.Context, identity string, userID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity]; ok {
		return ErrAlreadyExists
	}
	m.identities[identity] = userID
	return nil
}

func (m *memoryIdentities) Lookup(_ context.Context, identity string) (id.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.identities[identity]
	if !ok {
		return "", ErrNotFound
	}
	return userID, nil
}

type memoryGroups Memory

func (m *memoryGroups) Insert(_ context.Context, group *domain.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; ok {
		return ErrAlreadyExists
	}
	m.groups[group.ID] = copyGroup(group)
	return nil
}

func (m *memoryGroups) Update(_ context.Context, group *domain.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; !ok {
		return ErrNotFound
	}
	m.groups[group.ID] = copyGroup(group)
	return nil
}

func (m *memoryGroups) Get(_ context.Context, groupID id.ID) (*domain.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := copyGroup(&group)
	return &cpy, nil
}

type memoryTickets Memory

func (m *memoryTickets) Insert(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; ok {
		return ErrAlreadyExists
	}
	m.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (m *memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return ErrNotFound
	}
	m.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (m *memoryTickets) Get(_ context.Context, ticketID id.ID) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := copyTicket(&ticket)
	return &cpy, nil
}

type memoryUploads Memory

func (m *memoryUploads) Insert(_ context.Context, upload *domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploads[upload.ID]; ok {
		return ErrAlreadyExists
	}
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *memoryUploads) Update(_ context.Context, upload *domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploads[upload.ID]; !ok {
		return ErrNotFound
	}
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *memoryUploads) Get(_ context.Context, uploadID id.ID) (*domain.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	upload, ok := m.uploads[uploadID]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := upload
	return &cpy, nil
}

type memoryListings Memory

func (m *memoryListings) Add(_ context.Context, kind ListingKind, userID, ticketID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := listingKey{kind: kind, user: userID}
	for _, existing := range m.listings[key] {
		if existing == ticketID {
			return nil
		}
	}
	m.listings[key] = append(m.listings[key], ticketID)
	return nil
}

func (m *memoryListings) Remove(_ context.Context, kind ListingKind, userID, ticketID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := listingKey{kind: kind, user: userID}
	items := m.listings[key]
	out := items[:0]
	for _, existing := range items {
		if existing != ticketID {
			out = append(out, existing)
		}
	}
	m.listings[key] = out
	return nil
}

func (m *memoryListings) List(_ context.Context, kind ListingKind, userID id.ID) ([]id.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.listings[listingKey{kind: kind, user: userID}]
	return append([]id.ID(nil), items...), nil
}

type memoryUserGroups Memory

func (m *memoryUserGroups) Add(_ context.Context, userID, groupID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.userGroups[userID] {
		if existing == groupID {
			return nil
		}
	}
	m.userGroups[userID] = append(m.userGroups[userID], groupID)
	return nil
}

func (m *memoryUserGroups) Remove(_ context.Context, userID, groupID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.userGroups[userID]
	out := items[:0]
	for _, existing := range items {
		if existing != groupID {
			out = append(out, existing)
		}
	}
	m.userGroups[userID] = out
	return nil
}

func (m *memoryUserGroups) List(_ context.Context, userID id.ID) ([]id.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]id.ID(nil), m.userGroups[userID]...), nil
}

func copyUser(user *domain.User) domain.User {
	cpy := *user
	if user.Identities.Telegram != nil {
		tg := *user.Identities.Telegram
		cpy.Identities.Telegram = &tg
	}
	if user.Identities.University != nil {
		uni := *user.Identities.University
		cpy.Identities.University = &uni
	}
	return cpy
}

func copyGroup(group *domain.Group) domain.Group {
	cpy := *group
	cpy.Members = append([]id.ID(nil), group.Members...)
	return cpy
}

func copyTicket(ticket *domain.Ticket) domain.Ticket {
	cpy := *ticket
	cpy.Timeline = append([]domain.TimelineItem(nil), ticket.Timeline...)
	if ticket.Assignee != nil {
		assignee := *ticket.Assignee
		cpy.Assignee = &assignee
	}
	return cpy
}
