package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var (
	// ErrInvalidAuthData means the widget payload failed HMAC verification.
	ErrInvalidAuthData = errors.New("invalid telegram auth data")
	// ErrStaleAuthData means the payload verified but auth_date is too old.
	ErrStaleAuthData = errors.New("stale telegram auth data")
)

// TelegramLoginData is the payload the Telegram login widget posts back:
// the profile fields flattened next to auth_date and the hex HMAC hash.
type TelegramLoginData struct {
	domain.TelegramProfile
	AuthDate int64  `json:"auth_date"`
	Hash     string `json:"hash"`
}

// ValidateTelegramLogin checks the widget payload against the bot secret.
// The check string is the received fields as key=value lines in alphabetical
// order; the hash is its hex-encoded HMAC-SHA256 under the secret. Optional
// fields (last_name, username, photo_url) enter the check string only when
// the widget sent them, per Telegram's data-check algorithm; a verifier that
// appended them unconditionally would reject every payload omitting one.
// Payloads older than maxAge relative to now are rejected even when the hash
// checks out.
func ValidateTelegramLogin(data TelegramLoginData, secret [32]byte, maxAge time.Duration, now time.Time) error {
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

	provided, err := hex.DecodeString(data.Hash)
	if err != nil {
		return ErrInvalidAuthData
	}
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrInvalidAuthData
	}

	if now.Unix()-data.AuthDate > int64(maxAge.Seconds()) {
		return ErrStaleAuthData
	}
	return nil
}
