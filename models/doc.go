// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateRoomRequest: name, scale_type, creator_name
  - JoinRoomRequest: name
  - RenameRequest: name
  - CastVoteRequest: value
  - SetChartTypeRequest: chart_type

# Response Types

  - CreateRoomResponse: room_id, admin_key, participant_key, session_token, share_url
  - JoinRoomResponse: participant_key, session_token, is_admin, rejoined
  - RegisterUserResponse: user_id, is_new
  - GetMyRoomsResponse: rooms linked to a user
  - ErrorResponse: error, message

# Domain Types

  - Room: room metadata, reveal flag and soft-delete marker
  - Participant: a seat in a room, keyed by a generated id
  - RoomView: what a client renders; vote values hidden until reveal
  - Results: grouped votes, average and consensus flag
  - Event: message pushed on the room change feed

# Constants

Chart types:

	ChartPie = "pie"
	ChartBar = "bar"

Room link roles:

	RoleAdmin       = "admin"
	RoleParticipant = "participant"
*/
package models
