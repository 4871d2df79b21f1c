package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/id"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSaved   EventType = "user_saved"
	EventGroupSaved  EventType = "group_saved"
	EventTicketSaved EventType = "ticket_saved"
)

// Event is emitted by services whenever an entity view is created or
// updated. Payload holds the full saved view for downstream consumers
// such as the search indexer.
type Event struct {
	Type      EventType `json:"type"`
	EntityID  id.ID     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// UserSaved builds the event for a saved user view.
func UserSaved(userID id.ID, view any) Event {
	return Event{Type: EventUserSaved, EntityID: userID, Timestamp: time.Now().UTC(), Payload: view}
}

// GroupSaved builds the event for a saved group view.
func GroupSaved(groupID id.ID, view any) Event {
	return Event{Type: EventGroupSaved, EntityID: groupID, Timestamp: time.Now().UTC(), Payload: view}
}

// TicketSaved builds the event for a saved ticket view.
func TicketSaved(ticketID id.ID, view any) Event {
	return Event{Type: EventTicketSaved, EntityID: ticketID, Timestamp: time.Now().UTC(), Payload: view}
}
