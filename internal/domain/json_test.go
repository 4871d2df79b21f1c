package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/id"
)

func TestExternalUserProfileFlattensVariantFields(t *testing.T) {
	raw, err := json.Marshal(ExternalUserProfile{
		Telegram: &TelegramProfile{ID: 1337, FirstName: "Alice"},
	})
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, `"Telegram"`, string(decoded["type"]))
	assert.Equal(t, `1337`, string(decoded["id"]))
	assert.Equal(t, `"Alice"`, string(decoded["first_name"]))
	// variant fields live next to the tag, not under a nested key
	assert.NotContains(t, decoded, "Telegram")
}

func TestExternalUserProfileRoundTrip(t *testing.T) {
	username := "alice_tg"
	original := ExternalUserProfile{
		Telegram: &TelegramProfile{ID: 7, FirstName: "Alice", LastName: "Smith", Username: &username},
	}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var parsed ExternalUserProfile
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, original, parsed)

	university := ExternalUserProfile{
		University: &UniversityProfile{Email: "a@uni.example", CommonName: "Alice Smith"},
	}
	raw, err = json.Marshal(university)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, university, parsed)
}

func TestExternalUserProfileRejectsUnknownProvider(t *testing.T) {
	var parsed ExternalUserProfile
	err := json.Unmarshal([]byte(`{"type":"Carrier-Pigeon"}`), &parsed)
	assert.Error(t, err)
}

func TestMarshalRequiresOneVariant(t *testing.T) {
	_, err := json.Marshal(ExternalUserProfile{})
	assert.Error(t, err)

	_, err = json.Marshal(TicketUpdate{})
	assert.Error(t, err)

	_, err = json.Marshal(GroupUpdate{})
	assert.Error(t, err)
}

func TestTicketDestinationUsesExplicitTag(t *testing.T) {
	groupID := id.Generate()
	raw, err := json.Marshal(TicketDestination{Type: DestinationGroup, ID: groupID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Group","id":"`+groupID.String()+`"}`, string(raw))

	var parsed TicketDestination
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, DestinationGroup, parsed.Type)
	assert.Equal(t, groupID, parsed.ID)
}

func TestTimelineContentVariants(t *testing.T) {
	author := id.Generate()

	message := TimelineContent{Message: &TimelineMessage{From: author, Text: "hello"}}
	raw, err := json.Marshal(message)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"Message"`)
	var parsedMessage TimelineContent
	require.NoError(t, json.Unmarshal(raw, &parsedMessage))
	require.NotNil(t, parsedMessage.Message)
	assert.Equal(t, "hello", parsedMessage.Message.Text)

	status := TimelineContent{StatusChange: &TimelineStatusChange{Old: TicketStatusPending, New: TicketStatusResolved}}
	raw, err = json.Marshal(status)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"StatusChange"`)
	var parsedStatus TimelineContent
	require.NoError(t, json.Unmarshal(raw, &parsedStatus))
	require.NotNil(t, parsedStatus.StatusChange)
	assert.Equal(t, TicketStatusResolved, parsedStatus.StatusChange.New)

	handover := TimelineContent{AssigneeChange: &TimelineAssigneeChange{Old: &author, New: nil}}
	raw, err = json.Marshal(handover)
	require.NoError(t, err)
	var parsedHandover TimelineContent
	require.NoError(t, json.Unmarshal(raw, &parsedHandover))
	require.NotNil(t, parsedHandover.AssigneeChange)
	assert.Equal(t, &author, parsedHandover.AssigneeChange.Old)
	assert.Nil(t, parsedHandover.AssigneeChange.New)
}

func TestTicketUpdateDecodesByTag(t *testing.T) {
	var update TicketUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"type":"SendTicketMessage","body":"hi"}`), &update))
	require.NotNil(t, update.SendMessage)
	assert.Equal(t, "hi", update.SendMessage.Body)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"ChangeStatus","new_status":"InProgress"}`), &update))
	require.NotNil(t, update.ChangeStatus)
	assert.Nil(t, update.SendMessage, "decoding must reset previous variants")

	err := json.Unmarshal([]byte(`{"type":"Escalate"}`), &update)
	assert.Error(t, err)
}

func TestGroupUpdateRoundTrip(t *testing.T) {
	member := id.Generate()
	for _, update := range []GroupUpdate{
		{AddMember: &AddGroupMember{NewMember: member}},
		{RemoveMember: &RemoveGroupMember{RemovedMember: member}},
		{ChangeTitle: &ChangeGroupTitle{NewTitle: "Night Shift"}},
	} {
		raw, err := json.Marshal(update)
		require.NoError(t, err)
		var parsed GroupUpdate
		require.NoError(t, json.Unmarshal(raw, &parsed))
		assert.Equal(t, update, parsed)
	}
}

func TestExternalProfileName(t *testing.T) {
	noLast := ExternalUserProfile{Telegram: &TelegramProfile{ID: 1, FirstName: "Alice"}}
	assert.Equal(t, "Alice", noLast.Name())

	full := ExternalUserProfile{Telegram: &TelegramProfile{ID: 1, FirstName: "Alice", LastName: "Smith"}}
	assert.Equal(t, "Alice Smith", full.Name())

	uni := ExternalUserProfile{University: &UniversityProfile{CommonName: "Alice Smith", Email: "a@uni.example"}}
	assert.Equal(t, "Alice Smith", uni.Name())
}
