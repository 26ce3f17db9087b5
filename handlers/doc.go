// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the planning poker API.

# Handler Types

Each handler is a struct with database, config and (for writers) broker
dependencies:

  - RoomHandler: Room lifecycle (create, view, chart type, delete)
  - ParticipantHandler: Joining, leaving, renaming and kicking
  - VotingHandler: Casting votes, reveal and reset
  - ResultsHandler: Revealed tallies and the scale catalogue
  - UserHandler: Persistent browser ids and room history
  - EventsHandler: WebSocket stream of room views

	roomHandler := handlers.NewRoomHandler(db, cfg, broker)

# Rooms

	POST   /rooms                  → CreateRoom (returns admin_key and the creator's seat)
	GET    /rooms/{id}             → GetRoom
	PUT    /rooms/{id}/chart-type  → SetChartType
	DELETE /rooms/{id}             → DeleteRoom (soft delete)

# Seats

Joining returns a participant key and a session token. The token goes in
the X-Session-Token header; sending it again on join takes the same seat
back. Names are unique per room ignoring case.

	POST   /rooms/{id}/join               → JoinRoom
	POST   /rooms/{id}/leave              → LeaveRoom
	PUT    /rooms/{id}/participants/me    → RenameParticipant
	DELETE /rooms/{id}/participants/{key} → KickParticipant

Deleting a room and kicking require X-Admin-Key or an admin's session.

# Voting

	POST   /rooms/{id}/votes   → CastVote
	DELETE /rooms/{id}/votes   → RetractVote
	POST   /rooms/{id}/reveal  → Reveal
	POST   /rooms/{id}/reset   → Reset
	GET    /rooms/{id}/results → GetResults (403 until revealed)

Vote values are hidden in every response until the room is revealed; only
has_voted is visible. ComputeTally groups the revealed votes:

	results := ComputeTally([]string{"3", "5", "5", "☕"}, scales.Lookup(scales.Fibonacci))

# Change Feed

	GET /rooms/{id}/events?session=TOKEN → Events

Every write publishes on the realtime.Broker after it commits. Open
streams reload and push the room view.
*/
package handlers
