package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func signLoginData(t *testing.T, data *TelegramLoginData, secret [32]byte) {
	t.Helper()
	parts := []string{
		fmt.Sprintf("auth_date=%d", data.AuthDate),
		"first_name=" + data.FirstName,
		fmt.Sprintf("id=%d", data.ID),
	}
	if data.LastName != "" {
		parts = append(parts, "last_name="+data.LastName)
	}
	if data.PhotoURL != nil {
		parts = append(parts, "photo_url="+*data.PhotoURL)
	}
	if data.Username != nil {
		parts = append(parts, "username="+*data.Username)
	}
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(parts, "\n")))
	data.Hash = hex.EncodeToString(mac.Sum(nil))
}

func TestValidateTelegramLogin(t *testing.T) {
	secret := sha256.Sum256([]byte("123456:bot-token"))
	now := time.Unix(1700000100, 0)
	username := "durov"

	data := TelegramLoginData{
		TelegramProfile: domain.TelegramProfile{
			ID:        42,
			FirstName: "Pavel",
			LastName:  "Durov",
			Username:  &username,
		},
		AuthDate: now.Unix() - 10,
	}
	signLoginData(t, &data, secret)

	require.NoError(t, ValidateTelegramLogin(data, secret, time.Minute, now))
}

func TestValidateTelegramLoginOmitsAbsentFields(t *testing.T) {
	secret := sha256.Sum256([]byte("another-bot-token"))
	now := time.Unix(1700000100, 0)

	data := TelegramLoginData{
		TelegramProfile: domain.TelegramProfile{ID: 7, FirstName: "Mono"},
		AuthDate:        now.Unix(),
	}
	signLoginData(t, &data, secret)

	require.NoError(t, ValidateTelegramLogin(data, secret, time.Minute, now))
}

func TestValidateTelegramLoginRejectsTampering(t *testing.T) {
	secret := sha256.Sum256([]byte("bot-token"))
	now := time.Unix(1700000100, 0)

	data := TelegramLoginData{
		TelegramProfile: domain.TelegramProfile{ID: 42, FirstName: "Pavel"},
		AuthDate:        now.Unix(),
	}
	signLoginData(t, &data, secret)
	data.FirstName = "Mallory"

	assert.ErrorIs(t, ValidateTelegramLogin(data, secret, time.Minute, now), ErrInvalidAuthData)
}

func TestValidateTelegramLoginRejectsBadHash(t *testing.T) {
	secret := sha256.Sum256([]byte("bot-token"))
	now := time.Unix(1700000100, 0)

	data := TelegramLoginData{
		TelegramProfile: domain.TelegramProfile{ID: 42, FirstName: "Pavel"},
		AuthDate:        now.Unix(),
		Hash:            "not-hex",
	}

	assert.ErrorIs(t, ValidateTelegramLogin(data, secret, time.Minute, now), ErrInvalidAuthData)
}

func TestValidateTelegramLoginRejectsStaleAuthDate(t *testing.T) {
	secret := sha256.Sum256([]byte("bot-token"))
	now := time.Unix(1700000100, 0)

	data := TelegramLoginData{
		TelegramProfile: domain.TelegramProfile{ID: 42, FirstName: "Pavel"},
		AuthDate:        now.Unix() - 61,
	}
	signLoginData(t, &data, secret)

	assert.ErrorIs(t, ValidateTelegramLogin(data, secret, time.Minute, now), ErrStaleAuthData)
}
