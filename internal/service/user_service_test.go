package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

func TestCreateUserStoresIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := id.Generate()
	username := "durov"
	created, err := f.users.Create(ctx, userID, domain.CreateUser{
		Profile: domain.ExternalUserProfile{
			Telegram: &domain.TelegramProfile{ID: 42, FirstName: "Pavel", LastName: "Durov", Username: &username},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pavel Durov", created.Name)

	user, err := f.users.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user.Identities.Telegram)
	assert.Equal(t, int64(42), user.Identities.Telegram.ID)
	assert.Nil(t, user.Identities.University)
}

func TestCreateUserRejectsTakenIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile := domain.ExternalUserProfile{
		Telegram: &domain.TelegramProfile{ID: 42, FirstName: "Pavel"},
	}
	_, err := f.users.Create(ctx, id.Generate(), domain.CreateUser{Profile: profile})
	require.NoError(t, err)

	_, err = f.users.Create(ctx, id.Generate(), domain.CreateUser{Profile: profile})
	requireCode(t, err, "CONFLICT")
}

func TestCreateUserRejectsOccupiedID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := id.Generate()
	_, err := f.users.Create(ctx, userID, domain.CreateUser{
		Profile: domain.ExternalUserProfile{Telegram: &domain.TelegramProfile{ID: 1, FirstName: "A"}},
	})
	require.NoError(t, err)

	_, err = f.users.Create(ctx, userID, domain.CreateUser{
		Profile: domain.ExternalUserProfile{Telegram: &domain.TelegramProfile{ID: 2, FirstName: "B"}},
	})
	requireCode(t, err, "CONFLICT")
}

func TestCreateUserRejectsEmptyProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(context.Background(), id.Generate(), domain.CreateUser{})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestAddIdentityFillsSecondSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.createUser(t, "Alice")

	_, err := f.users.AddIdentity(ctx, userID, domain.AddUserIdentity{
		Profile: domain.ExternalUserProfile{
			University: &domain.UniversityProfile{Email: "alice@example.edu", CommonName: "Alice L"},
		},
	})
	require.NoError(t, err)

	user, err := f.users.Get(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, user.Identities.Telegram)
	require.NotNil(t, user.Identities.University)
	assert.Equal(t, "alice@example.edu", user.Identities.University.Email)
}

func TestAddIdentityRejectsFilledSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.createUser(t, "Alice")

	_, err := f.users.AddIdentity(ctx, userID, domain.AddUserIdentity{
		Profile: domain.ExternalUserProfile{
			Telegram: &domain.TelegramProfile{ID: 999, FirstName: "Other"},
		},
	})
	requireCode(t, err, "CONFLICT")
}

func TestAddIdentityRejectsTakenIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "Alice")
	bob := f.createUser(t, "Bob")

	uni := domain.ExternalUserProfile{
		University: &domain.UniversityProfile{Email: "shared@example.edu", CommonName: "Shared"},
	}
	_, err := f.users.AddIdentity(ctx, alice, domain.AddUserIdentity{Profile: uni})
	require.NoError(t, err)

	_, err = f.users.AddIdentity(ctx, bob, domain.AddUserIdentity{Profile: uni})
	requireCode(t, err, "CONFLICT")
}

func TestUserGroupsListsMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createUser(t, "Alice")
	bob := f.createUser(t, "Bob")

	first := f.createGroup(t, alice, "First")
	second := f.createGroup(t, alice, "Second")
	_, err := f.groups.Update(ctx, second, alice, domain.GroupUpdate{
		AddMember: &domain.AddGroupMember{NewMember: bob},
	})
	require.NoError(t, err)

	out, err := f.users.Groups(ctx, alice)
	require.NoError(t, err)
	require.Len(t, out.Payload, 2)
	assert.Equal(t, first, out.Payload[0].ID)
	assert.Equal(t, second, out.Payload[1].ID)

	// every member referenced by a listed group resolves in the users map
	for _, group := range out.Payload {
		for _, member := range group.Members {
			assert.Contains(t, out.Users, member)
		}
	}
}
