// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidLength   = errors.New("id length must be positive")
)

// Lengths of the generated identifiers
const (
	RoomIDLength         = 10
	ParticipantKeyLength = 8
	SessionTokenLength   = 16
)

// idAlphabet has exactly 64 symbols so a random byte masked with 63 maps
// onto it without bias.
const idAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// GenerateID creates a random URL-safe ID of the given length
func GenerateID(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}

	for i := range b {
		b[i] = idAlphabet[b[i]&63]
	}
	return string(b), nil
}

// GenerateRoomID creates a short shareable room ID
func GenerateRoomID() (string, error) {
	return GenerateID(RoomIDLength)
}

// GenerateParticipantKey creates the key a participant is stored under
func GenerateParticipantKey() (string, error) {
	return GenerateID(ParticipantKeyLength)
}

// GenerateSessionToken creates the per-room secret that proves a seat
func GenerateSessionToken() (string, error) {
	return GenerateID(SessionTokenLength)
}

// GenerateUserID creates a persistent browser identity
func GenerateUserID() string {
	return uuid.NewString()
}

// GenerateAdminKey creates an HMAC-based admin key for a room
// This is deterministic and verifiable
func GenerateAdminKey(roomID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(roomID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the room
func ValidateAdminKey(roomID, adminKey, salt string) error {
	if adminKey == "" {
		return ErrInvalidAdminKey
	}
	expected := GenerateAdminKey(roomID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}
