package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// fakeClock hands out strictly increasing instants so ordering by
// latest_update is deterministic.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store      *repository.Memory
	dispatcher events.Dispatcher
	users      *UserService
	groups     *GroupService
	tickets    *TicketService
	logins     *LoginService
	uploads    *UploadService
	clock      *fakeClock

	nextTelegramID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemory()
	dispatcher := events.NewInMemoryDispatcher(logger)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	userService := NewUserService(UserDependencies{
		UserRepo:       store.Users(),
		IdentityRepo:   store.Identities(),
		GroupRepo:      store.Groups(),
		UserGroupsRepo: store.UserGroups(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	groupService := NewGroupService(GroupDependencies{
		GroupRepo:      store.Groups(),
		UserRepo:       store.Users(),
		UserGroupsRepo: store.UserGroups(),
		TicketRepo:     store.Tickets(),
		ListingRepo:    store.TicketListings(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		GroupRepo:   store.Groups(),
		ListingRepo: store.TicketListings(),
		Dispatcher:  dispatcher,
		Logger:      logger,
		Now:         clock.now,
	})
	loginService := NewLoginService(LoginDependencies{
		UserRepo:     store.Users(),
		IdentityRepo: store.Identities(),
		UserService:  userService,
		Auth: config.AuthConfig{
			CookieSecret:          "test-secret",
			CookieTTLMinutes:      60,
			TelegramBotToken:      "123456:test-bot-token",
			LoginFreshnessSeconds: 60,
		},
		Logger: logger,
		Now:    clock.now,
	})

	fileStore, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)
	uploadService := NewUploadService(UploadDependencies{
		UploadRepo: store.Uploads(),
		Store:      fileStore,
		Secret:     "test-secret",
		Upload:     config.UploadConfig{Dir: "unused", URLTTLMinutes: 15, MaxSizeBytes: 1 << 20},
		Logger:     logger,
		Now:        clock.now,
	})

	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		users:      userService,
		groups:     groupService,
		tickets:    ticketService,
		logins:     loginService,
		uploads:    uploadService,
		clock:      clock,
	}
}

func (f *fixture) createUser(t *testing.T, name string) id.ID {
	t.Helper()
	f.nextTelegramID++
	userID := id.Generate()
	_, err := f.users.Create(context.Background(), userID, domain.CreateUser{
		Profile: domain.ExternalUserProfile{
			Telegram: &domain.TelegramProfile{ID: f.nextTelegramID, FirstName: name},
		},
	})
	require.NoError(t, err)
	return userID
}

func (f *fixture) createGroup(t *testing.T, creator id.ID, title string) id.ID {
	t.Helper()
	groupID := id.Generate()
	_, err := f.groups.Create(context.Background(), groupID, creator, domain.CreateGroup{Title: title})
	require.NoError(t, err)
	return groupID
}

func (f *fixture) createTicket(t *testing.T, owner id.ID, dest domain.TicketDestination, title, body string) id.ID {
	t.Helper()
	ticketID := id.Generate()
	_, err := f.tickets.Create(context.Background(), ticketID, owner, domain.CreateTicket{
		Destination: dest,
		Title:       title,
		Body:        body,
	})
	require.NoError(t, err)
	return ticketID
}

func userDest(userID id.ID) domain.TicketDestination {
	return domain.TicketDestination{Type: domain.DestinationUser, ID: userID}
}

func groupDest(groupID id.ID) domain.TicketDestination {
	return domain.TicketDestination{Type: domain.DestinationGroup, ID: groupID}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, fmt.Sprintf("unexpected error: %v", err))
}
