// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Two engines are supported, chosen by the DATABASE_TYPE setting:

  - sqlite (default): modernc.org/sqlite, pure Go, also used by the tests
  - postgres: github.com/lib/pq

	conn, err := db.Open(cfg)

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - room: name, scale, reveal flag, chart type, soft-delete marker
  - participant: seats in a room, keyed by (room_id, participant_key)
  - vote: at most one per participant
  - user_room: links persistent user IDs to rooms they created or joined

# Relationships

	room 1──* participant 1──? vote
	user *──* room (via user_room)

Participant names are unique per room ignoring case (expression index on
LOWER(name)).
*/
package db
