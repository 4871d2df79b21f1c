package domain

import (
	"encoding/json"
	"fmt"

	"github.com/spec-kit/helpdesk/internal/id"
)

// Group is the group aggregate and its full view. Members keep join order,
// with the creator always first.
type Group struct {
	ID      id.ID   `json:"id"`
	Title   string  `json:"title"`
	Members []id.ID `json:"members"`
}

// NewGroup applies the CreateGroup semantics: the creator is atomically the
// first member.
func NewGroup(groupID id.ID, creator id.ID, title string) *Group {
	return &Group{ID: groupID, Title: title, Members: []id.ID{creator}}
}

// HasMember reports membership.
func (g *Group) HasMember(userID id.ID) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AddMember appends the user, a no-op when already present.
func (g *Group) AddMember(userID id.ID) {
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
}

// RemoveMember removes the user preserving the relative order of the rest.
func (g *Group) RemoveMember(userID id.ID) {
	out := g.Members[:0]
	for _, m := range g.Members {
		if m != userID {
			out = append(out, m)
		}
	}
	g.Members = out
}

// Profile projects the display part of a group.
func (g *Group) Profile() GroupProfile {
	return GroupProfile{ID: g.ID, Title: g.Title}
}

// GroupProfile is the display projection of a group, delivered inside
// enrichment maps.
type GroupProfile struct {
	ID    id.ID  `json:"id"`
	Title string `json:"title"`
}

// CreateGroup is the creation command body.
type CreateGroup struct {
	Title string `json:"title"`
}

// AddGroupMember adds a member to a group.
type AddGroupMember struct {
	NewMember id.ID `json:"new_member"`
}

// RemoveGroupMember removes a member from a group.
type RemoveGroupMember struct {
	RemovedMember id.ID `json:"removed_member"`
}

// ChangeGroupTitle renames a group.
type ChangeGroupTitle struct {
	NewTitle string `json:"new_title"`
}

// GroupUpdate is the tagged union of group mutation commands. Exactly one
// variant is set.
type GroupUpdate struct {
	AddMember    *AddGroupMember
	RemoveMember *RemoveGroupMember
	ChangeTitle  *ChangeGroupTitle
}

func (u GroupUpdate) MarshalJSON() ([]byte, error) {
	switch {
	case u.AddMember != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*AddGroupMember
		}{"AddMember", u.AddMember})
	case u.RemoveMember != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*RemoveGroupMember
		}{"RemoveMember", u.RemoveMember})
	case u.ChangeTitle != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*ChangeGroupTitle
		}{"ChangeTitle", u.ChangeTitle})
	}
	return nil, fmt.Errorf("group update has no variant set")
}

func (u *GroupUpdate) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*u = GroupUpdate{}
	switch tag.Type {
	case "AddMember":
		u.AddMember = &AddGroupMember{}
		return json.Unmarshal(data, u.AddMember)
	case "RemoveMember":
		u.RemoveMember = &RemoveGroupMember{}
		return json.Unmarshal(data, u.RemoveMember)
	case "ChangeTitle":
		u.ChangeTitle = &ChangeGroupTitle{}
		return json.Unmarshal(data, u.ChangeTitle)
	default:
		return fmt.Errorf("unknown group update type %q", tag.Type)
	}
}
