package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// enricher resolves referenced user/group ids to display profiles for the
// enriched view wrappers. Lookups go through the shared cache first; ids
// that resolve to nothing are logged and skipped rather than failing the
// whole view.
type enricher struct {
	users  repository.UserRepository
	groups repository.GroupRepository
	cache  repository.ProfileCache
	logger *zap.Logger
}

func (e *enricher) userProfiles(ctx context.Context, ids []id.ID) (map[id.ID]domain.UserProfile, error) {
	profiles := make(map[id.ID]domain.UserProfile, len(ids))
	for _, userID := range ids {
		if _, done := profiles[userID]; done {
			continue
		}
		if e.cache != nil {
			if profile, ok := e.cache.GetUserProfile(ctx, userID); ok {
				profiles[userID] = *profile
				continue
			}
		}
		user, err := e.users.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				e.logger.Warn("referenced user missing from view store", zap.String("user_id", userID.String()))
				continue
			}
			return nil, err
		}
		profile := user.Profile()
		profiles[userID] = profile
		if e.cache != nil {
			e.cache.SetUserProfile(ctx, profile)
		}
	}
	return profiles, nil
}

func (e *enricher) groupProfiles(ctx context.Context, ids []id.ID) (map[id.ID]domain.GroupProfile, error) {
	profiles := make(map[id.ID]domain.GroupProfile, len(ids))
	for _, groupID := range ids {
		if _, done := profiles[groupID]; done {
			continue
		}
		if e.cache != nil {
			if profile, ok := e.cache.GetGroupProfile(ctx, groupID); ok {
				profiles[groupID] = *profile
				continue
			}
		}
		group, err := e.groups.Get(ctx, groupID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				e.logger.Warn("referenced group missing from view store", zap.String("group_id", groupID.String()))
				continue
			}
			return nil, err
		}
		profile := group.Profile()
		profiles[groupID] = profile
		if e.cache != nil {
			e.cache.SetGroupProfile(ctx, profile)
		}
	}
	return profiles, nil
}

// ticketRefs collects every user and group id a ticket view references.
func ticketRefs(t domain.TicketListItem, timeline []domain.TimelineItem) (userIDs, groupIDs []id.ID) {
	userIDs = append(userIDs, t.Owner)
	if t.Assignee != nil {
		userIDs = append(userIDs, *t.Assignee)
	}
	switch t.Destination.Type {
	case domain.DestinationUser:
		userIDs = append(userIDs, t.Destination.ID)
	case domain.DestinationGroup:
		groupIDs = append(groupIDs, t.Destination.ID)
	}
	for _, item := range timeline {
		switch {
		case item.Content.Message != nil:
			userIDs = append(userIDs, item.Content.Message.From)
		case item.Content.AssigneeChange != nil:
			if old := item.Content.AssigneeChange.Old; old != nil {
				userIDs = append(userIDs, *old)
			}
			if next := item.Content.AssigneeChange.New; next != nil {
				userIDs = append(userIDs, *next)
			}
		}
	}
	return userIDs, groupIDs
}
