// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/handlers"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/realtime"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, broker realtime.Broker) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(db, cfg, broker)
	participantHandler := handlers.NewParticipantHandler(db, cfg, broker)
	votingHandler := handlers.NewVotingHandler(db, cfg, broker)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db, cfg)
	eventsHandler := handlers.NewEventsHandler(db, cfg, broker)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Scale catalogue
	mux.HandleFunc("GET /scales", middleware.WithLogging(resultsHandler.GetScales))

	// Room management
	mux.HandleFunc("POST /rooms", middleware.WithLogging(roomHandler.CreateRoom))
	mux.HandleFunc("GET /rooms/{id}", middleware.WithLogging(roomHandler.GetRoom))
	mux.HandleFunc("DELETE /rooms/{id}", middleware.WithLogging(roomHandler.DeleteRoom))
	mux.HandleFunc("PUT /rooms/{id}/chart-type", middleware.WithLogging(roomHandler.SetChartType))

	// Participants (session token in X-Session-Token)
	mux.HandleFunc("POST /rooms/{id}/join", middleware.WithLogging(participantHandler.JoinRoom))
	mux.HandleFunc("POST /rooms/{id}/leave", middleware.WithLogging(participantHandler.LeaveRoom))
	mux.HandleFunc("PUT /rooms/{id}/participants/me", middleware.WithLogging(participantHandler.RenameParticipant))
	mux.HandleFunc("DELETE /rooms/{id}/participants/{key}", middleware.WithLogging(participantHandler.KickParticipant))

	// Voting rounds
	mux.HandleFunc("POST /rooms/{id}/votes", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("DELETE /rooms/{id}/votes", middleware.WithLogging(votingHandler.RetractVote))
	mux.HandleFunc("POST /rooms/{id}/reveal", middleware.WithLogging(votingHandler.Reveal))
	mux.HandleFunc("POST /rooms/{id}/reset", middleware.WithLogging(votingHandler.Reset))

	// Results (revealed rooms only)
	mux.HandleFunc("GET /rooms/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Live updates
	mux.HandleFunc("GET /rooms/{id}/events", middleware.WithLogging(eventsHandler.Events))

	// Browser identities
	mux.HandleFunc("POST /users/register", middleware.WithLogging(userHandler.RegisterUser))
	mux.HandleFunc("GET /users/me/rooms", middleware.WithLogging(userHandler.GetMyRooms))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("planning-poker API v1"))
	})

	return mux
}
