// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scales"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetResults handles GET /rooms/{id}/results
// Returns 403 until the votes are revealed
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	// Votes stay hidden until someone reveals them
	if !room.Revealed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until votes are revealed")
		return
	}

	results, err := roomResults(r.Context(), h.db, room)
	if err != nil {
		slog.Error("failed to compute results", "error", err, "room_id", room.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// GetScales handles GET /scales
func (h *ResultsHandler) GetScales(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.ScalesResponse{
		Scales: scales.All(),
	})
}
