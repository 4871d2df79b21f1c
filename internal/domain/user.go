package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/id"
)

// TelegramProfile is the identity payload delivered by the Telegram login
// widget.
type TelegramProfile struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Username  *string `json:"username"`
	PhotoURL  *string `json:"photo_url"`
}

// UniversityProfile is the identity payload from the university SSO.
type UniversityProfile struct {
	Email      string `json:"email"`
	CommonName string `json:"commonname"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
}

// ExternalUserProfile is a tagged union over the supported identity
// providers. Exactly one variant is set.
type ExternalUserProfile struct {
	Telegram   *TelegramProfile
	University *UniversityProfile
}

// Name derives the display name the way the most authoritative provider
// spells it.
func (p ExternalUserProfile) Name() string {
	switch {
	case p.Telegram != nil:
		return strings.TrimSpace(p.Telegram.FirstName + " " + p.Telegram.LastName)
	case p.University != nil:
		return p.University.CommonName
	}
	return ""
}

// IdentityKey is the globally-unique key a profile claims in the identity
// index, e.g. "telegram-123456".
func (p ExternalUserProfile) IdentityKey() string {
	switch {
	case p.Telegram != nil:
		return fmt.Sprintf("telegram-%d", p.Telegram.ID)
	case p.University != nil:
		return fmt.Sprintf("university-%s", p.University.Email)
	}
	return ""
}

// Valid reports whether exactly one provider variant is present.
func (p ExternalUserProfile) Valid() bool {
	return (p.Telegram != nil) != (p.University != nil)
}

func (p ExternalUserProfile) MarshalJSON() ([]byte, error) {
	switch {
	case p.Telegram != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*TelegramProfile
		}{"Telegram", p.Telegram})
	case p.University != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*UniversityProfile
		}{"University", p.University})
	}
	return nil, fmt.Errorf("external user profile has no variant set")
}

func (p *ExternalUserProfile) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*p = ExternalUserProfile{}
	switch tag.Type {
	case "Telegram":
		p.Telegram = &TelegramProfile{}
		return json.Unmarshal(data, p.Telegram)
	case "University":
		p.University = &UniversityProfile{}
		return json.Unmarshal(data, p.University)
	default:
		return fmt.Errorf("unknown profile type %q", tag.Type)
	}
}

// UserIdentities holds one slot per identity provider. A real user has at
// least one slot populated.
type UserIdentities struct {
	Telegram   *TelegramProfile   `json:"telegram"`
	University *UniversityProfile `json:"university"`
}

// CanAdd reports whether the slot for the profile's provider is still free.
func (i UserIdentities) CanAdd(profile ExternalUserProfile) bool {
	switch {
	case profile.Telegram != nil:
		return i.Telegram == nil
	case profile.University != nil:
		return i.University == nil
	}
	return false
}

// Add stores the profile in its provider slot, overwriting whatever was
// there. Callers check CanAdd first.
func (i *UserIdentities) Add(profile ExternalUserProfile) {
	switch {
	case profile.Telegram != nil:
		i.Telegram = profile.Telegram
	case profile.University != nil:
		i.University = profile.University
	}
}

// User is the user aggregate and doubles as its full view.
type User struct {
	ID         id.ID          `json:"id"`
	Name       string         `json:"name"`
	Identities UserIdentities `json:"identities"`
}

// Profile projects the public part of a user.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name}
}

// UserProfile is the public display projection of a user, delivered inside
// enrichment maps.
type UserProfile struct {
	ID   id.ID  `json:"id"`
	Name string `json:"name"`
}

// NewUser applies the Create command semantics: name derived from the
// profile, the profile stored in its identity slot.
func NewUser(userID id.ID, profile ExternalUserProfile) *User {
	u := &User{ID: userID, Name: profile.Name()}
	u.Identities.Add(profile)
	return u
}

// CreateUser is the creation command body.
type CreateUser struct {
	Profile ExternalUserProfile `json:"profile"`
}

// AddUserIdentity attaches an additional provider profile to a user.
type AddUserIdentity struct {
	Profile ExternalUserProfile `json:"profile"`
}

// UserUpdate is the tagged union of user mutation commands.
type UserUpdate struct {
	AddIdentity *AddUserIdentity
}

func (u UserUpdate) MarshalJSON() ([]byte, error) {
	if u.AddIdentity != nil {
		return json.Marshal(struct {
			Type string `json:"type"`
			*AddUserIdentity
		}{"AddIdentity", u.AddIdentity})
	}
	return nil, fmt.Errorf("user update has no variant set")
}

func (u *UserUpdate) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*u = UserUpdate{}
	switch tag.Type {
	case "AddIdentity":
		u.AddIdentity = &AddUserIdentity{}
		return json.Unmarshal(data, u.AddIdentity)
	default:
		return fmt.Errorf("unknown user update type %q", tag.Type)
	}
}
