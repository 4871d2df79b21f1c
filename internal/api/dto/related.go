package dto

import (
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/id"
)

// WithUsers bundles a view with the display profiles of every user it
// references, keyed by id so clients render lists in one round trip.
type WithUsers[T any] struct {
	Users   map[id.ID]domain.UserProfile `json:"users"`
	Payload T                            `json:"payload"`
}

// WithGroupsAndUsers additionally carries referenced group profiles.
type WithGroupsAndUsers[T any] struct {
	Groups  map[id.ID]domain.GroupProfile `json:"groups"`
	Users   map[id.ID]domain.UserProfile  `json:"users"`
	Payload T                             `json:"payload"`
}
