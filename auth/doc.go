// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier and secret generation for rooms.

# Identifiers

Short random identifiers are drawn from a 64-symbol URL-safe alphabet:

	roomID, err := auth.GenerateRoomID()          // 10 chars, shared in links
	key, err := auth.GenerateParticipantKey()     // 8 chars, public
	token, err := auth.GenerateSessionToken()     // 16 chars, secret

Session tokens prove ownership of a seat in one room and are sent back in
the X-Session-Token header.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(roomID, salt)
	err := auth.ValidateAdminKey(roomID, adminKey, salt)

Since the key is derived from the room ID and salt, nothing needs storing.

# User IDs

Persistent browser identities are UUIDs:

	userID := auth.GenerateUserID()
*/
package auth
