package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk/internal/id"
)

// TicketStatus enumerates ticket lifecycle states. Transitions are not
// restricted; workflow policy stays with the caller.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusDeclined   TicketStatus = "Declined"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// KnownStatus reports whether s is one of the contract statuses.
func KnownStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusDeclined, TicketStatusResolved:
		return true
	}
	return false
}

// DestinationKind discriminates ticket destinations.
type DestinationKind string

const (
	DestinationUser  DestinationKind = "User"
	DestinationGroup DestinationKind = "Group"
)

// TicketDestination is the addressee of a ticket. The discriminant is an
// explicit field; the legacy property-presence encoding is not accepted.
type TicketDestination struct {
	Type DestinationKind `json:"type"`
	ID   id.ID           `json:"id"`
}

// Ticket is the ticket aggregate and its full view. The timeline is
// append-only; position 0 is always the initial message.
type Ticket struct {
	ID           id.ID             `json:"id"`
	Destination  TicketDestination `json:"destination"`
	Owner        id.ID             `json:"owner"`
	Assignee     *id.ID            `json:"assignee"`
	Title        string            `json:"title"`
	Status       TicketStatus      `json:"status"`
	Timeline     []TimelineItem    `json:"timeline"`
	LatestUpdate time.Time         `json:"latest_update"`
}

// NewTicket applies the create semantics: status Pending, the body as the
// first timeline message, and, for user destinations, the assignee forced to
// the destination user.
func NewTicket(ticketID id.ID, owner id.ID, cmd CreateTicket, now time.Time) *Ticket {
	t := &Ticket{
		ID:           ticketID,
		Destination:  cmd.Destination,
		Owner:        owner,
		Title:        cmd.Title,
		Status:       TicketStatusPending,
		LatestUpdate: now,
	}
	if cmd.Destination.Type == DestinationUser {
		dest := cmd.Destination.ID
		t.Assignee = &dest
	}
	t.appendItem(now, TimelineContent{Message: &TimelineMessage{From: owner, Text: cmd.Body}})
	return t
}

// AppendMessage adds a message from the given user.
func (t *Ticket) AppendMessage(from id.ID, text string, now time.Time) {
	t.appendItem(now, TimelineContent{Message: &TimelineMessage{From: from, Text: text}})
}

// ChangeStatus records the transition and moves the ticket to the new
// status.
func (t *Ticket) ChangeStatus(newStatus TicketStatus, now time.Time) {
	old := t.Status
	t.Status = newStatus
	t.appendItem(now, TimelineContent{StatusChange: &TimelineStatusChange{Old: old, New: newStatus}})
}

// ChangeAssignee records the handover and moves responsibility, nil meaning
// unassigned.
func (t *Ticket) ChangeAssignee(newAssignee *id.ID, now time.Time) {
	old := t.Assignee
	t.Assignee = newAssignee
	t.appendItem(now, TimelineContent{AssigneeChange: &TimelineAssigneeChange{Old: old, New: newAssignee}})
}

func (t *Ticket) appendItem(now time.Time, content TimelineContent) {
	t.Timeline = append(t.Timeline, TimelineItem{Date: now.UTC(), Content: content})
	t.LatestUpdate = now.UTC()
}

// ListItem projects the ticket for listings, which carry no timeline.
func (t *Ticket) ListItem() TicketListItem {
	return TicketListItem{
		ID:           t.ID,
		Destination:  t.Destination,
		Owner:        t.Owner,
		Assignee:     t.Assignee,
		Title:        t.Title,
		Status:       t.Status,
		LatestUpdate: t.LatestUpdate,
	}
}

// TicketListItem is the listing projection of a ticket.
type TicketListItem struct {
	ID           id.ID             `json:"id"`
	Destination  TicketDestination `json:"destination"`
	Owner        id.ID             `json:"owner"`
	Assignee     *id.ID            `json:"assignee"`
	Title        string            `json:"title"`
	Status       TicketStatus      `json:"status"`
	LatestUpdate time.Time         `json:"latest_update"`
}

// TimelineItem is one entry of a ticket's event log.
type TimelineItem struct {
	Date    time.Time       `json:"date"`
	Content TimelineContent `json:"content"`
}

// TimelineMessage is a user-authored message.
type TimelineMessage struct {
	From id.ID  `json:"from"`
	Text string `json:"text"`
}

// TimelineStatusChange records a status transition.
type TimelineStatusChange struct {
	Old TicketStatus `json:"old"`
	New TicketStatus `json:"new"`
}

// TimelineAssigneeChange records a responsibility handover.
type TimelineAssigneeChange struct {
	Old *id.ID `json:"old"`
	New *id.ID `json:"new"`
}

// TimelineContent is the tagged union of timeline entry kinds.
type TimelineContent struct {
	Message        *TimelineMessage
	StatusChange   *TimelineStatusChange
	AssigneeChange *TimelineAssigneeChange
}

func (c TimelineContent) MarshalJSON() ([]byte, error) {
	switch {
	case c.Message != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*TimelineMessage
		}{"Message", c.Message})
	case c.StatusChange != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*TimelineStatusChange
		}{"StatusChange", c.StatusChange})
	case c.AssigneeChange != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*TimelineAssigneeChange
		}{"AssigneeChange", c.AssigneeChange})
	}
	return nil, fmt.Errorf("timeline content has no variant set")
}

func (c *TimelineContent) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*c = TimelineContent{}
	switch tag.Type {
	case "Message":
		c.Message = &TimelineMessage{}
		return json.Unmarshal(data, c.Message)
	case "StatusChange":
		c.StatusChange = &TimelineStatusChange{}
		return json.Unmarshal(data, c.StatusChange)
	case "AssigneeChange":
		c.AssigneeChange = &TimelineAssigneeChange{}
		return json.Unmarshal(data, c.AssigneeChange)
	default:
		return fmt.Errorf("unknown timeline content type %q", tag.Type)
	}
}

// CreateTicket is the creation command body.
type CreateTicket struct {
	Destination TicketDestination `json:"destination"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
}

// SendTicketMessage appends a message to the timeline.
type SendTicketMessage struct {
	Body string `json:"body"`
}

// ChangeTicketStatus moves the ticket to a new status.
type ChangeTicketStatus struct {
	NewStatus TicketStatus `json:"new_status"`
}

// ChangeTicketAssignee hands the ticket over, nil meaning unassign.
type ChangeTicketAssignee struct {
	NewAssignee *id.ID `json:"new_assignee"`
}

// TicketUpdate is the tagged union of ticket mutation commands.
type TicketUpdate struct {
	SendMessage    *SendTicketMessage
	ChangeStatus   *ChangeTicketStatus
	ChangeAssignee *ChangeTicketAssignee
}

func (u TicketUpdate) MarshalJSON() ([]byte, error) {
	switch {
	case u.SendMessage != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*SendTicketMessage
		}{"SendTicketMessage", u.SendMessage})
	case u.ChangeStatus != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*ChangeTicketStatus
		}{"ChangeStatus", u.ChangeStatus})
	case u.ChangeAssignee != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*ChangeTicketAssignee
		}{"ChangeAssignee", u.ChangeAssignee})
	}
	return nil, fmt.Errorf("ticket update has no variant set")
}

func (u *TicketUpdate) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*u = TicketUpdate{}
	switch tag.Type {
	case "SendTicketMessage":
		u.SendMessage = &SendTicketMessage{}
		return json.Unmarshal(data, u.SendMessage)
	case "ChangeStatus":
		u.ChangeStatus = &ChangeTicketStatus{}
		return json.Unmarshal(data, u.ChangeStatus)
	case "ChangeAssignee":
		u.ChangeAssignee = &ChangeTicketAssignee{}
		return json.Unmarshal(data, u.ChangeAssignee)
	default:
		return fmt.Errorf("unknown ticket update type %q", tag.Type)
	}
}
