package id

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// ID is an opaque entity identifier: 128 random bits rendered in base58.
// Clients may mint an ID before the entity exists server-side, which is what
// makes create-with-caller-chosen-id idempotency possible.
type ID string

// RawLength is the number of bytes an ID decodes to.
const RawLength = 16

var (
	// ErrAlphabet indicates characters outside the base58 alphabet.
	ErrAlphabet = errors.New("id contains invalid characters, only base58 characters are allowed")
	// ErrLength indicates the decoded id is not 16 bytes.
	ErrLength = errors.New("id must decode to exactly 16 bytes")
)

// Generate mints a fresh statistically-unique ID from a random UUID.
func Generate() ID {
	u := uuid.New()
	return ID(base58.Encode(u[:]))
}

// Parse validates the base58 alphabet and decoded length of s.
func Parse(s string) (ID, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", ErrAlphabet
	}
	if len(raw) != RawLength {
		return "", ErrLength
	}
	return ID(s), nil
}

func (i ID) String() string { return string(i) }
