// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the planning-poker API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, broker)

# Endpoints

Health and catalogue:

	GET /health
	GET /scales

Rooms:

	POST   /rooms                 - Create room (creator becomes admin)
	GET    /rooms/{id}            - Room view (X-Session-Token optional)
	DELETE /rooms/{id}            - Delete room (admin)
	PUT    /rooms/{id}/chart-type - Switch results chart (participant)

Participants (X-Session-Token identifies the caller):

	POST   /rooms/{id}/join               - Join or rejoin
	POST   /rooms/{id}/leave              - Leave
	PUT    /rooms/{id}/participants/me    - Rename
	DELETE /rooms/{id}/participants/{key} - Remove someone (admin)

Voting:

	POST   /rooms/{id}/votes   - Cast or change a vote
	DELETE /rooms/{id}/votes   - Take a vote back
	POST   /rooms/{id}/reveal  - Reveal votes
	POST   /rooms/{id}/reset   - Clear votes for the next round
	GET    /rooms/{id}/results - Results (revealed rooms only)

Live updates:

	GET /rooms/{id}/events?session=TOKEN - WebSocket stream of room views

Users (X-User-ID identifies a browser):

	POST /users/register - Issue or confirm a user id
	GET  /users/me/rooms - Rooms this user created or joined

# Handler Initialization

The router creates handler instances with dependency injection:

	roomHandler := handlers.NewRoomHandler(db, cfg, broker)
	votingHandler := handlers.NewVotingHandler(db, cfg, broker)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

Handlers that change a room also receive the broker so watchers are woken.
*/
package router
