// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
	"github.com/danielhkuo/planning-poker/scales"
)

type VotingHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	broker realtime.Broker
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, broker realtime.Broker) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, broker: broker}
}

// CastVote handles POST /rooms/{id}/votes
// Voting again replaces the previous card until the room is revealed
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	p, ok := requireSession(w, r, h.db, room.ID)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	value := strings.TrimSpace(req.Value)
	if value == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "value is required")
		return
	}
	if !scales.Lookup(room.ScaleType).Contains(value) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "value is not on this room's scale: "+value)
		return
	}

	ctx := r.Context()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Re-read inside the transaction so a concurrent reveal wins
	current, err := loadRoom(ctx, tx, room.ID)
	if errors.Is(err, ErrRoomNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Room not found")
		return
	}
	if err != nil {
		slog.Error("failed to load room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if current.Revealed {
		middleware.ErrorResponse(w, http.StatusConflict, "Votes are already revealed; reset to vote again")
		return
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE room_id = $1 AND participant_key = $2
	`, room.ID, p.Key).Scan(&existing); err != nil {
		slog.Error("failed to query vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	isUpdate := existing > 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (room_id, participant_key, value, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, participant_key) DO UPDATE SET
			value = EXCLUDED.value,
			cast_at = EXCLUDED.cast_at
	`, room.ID, p.Key, value, time.Now().UTC())
	if err != nil {
		slog.Error("failed to save vote", "error", err, "room_id", room.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save vote")
		return
	}

	slog.Info("vote cast", "room_id", room.ID, "participant_key", p.Key, "is_update", isUpdate)
	notify(ctx, h.broker, room.ID)

	status, message := http.StatusCreated, "Vote recorded"
	if isUpdate {
		status, message = http.StatusOK, "Vote updated"
	}
	middleware.JSONResponse(w, status, models.MessageResponse{Message: message})
}

// RetractVote handles DELETE /rooms/{id}/votes
func (h *VotingHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	p, ok := requireSession(w, r, h.db, room.ID)
	if !ok {
		return
	}

	if room.Revealed {
		middleware.ErrorResponse(w, http.StatusConflict, "Votes are already revealed; reset to vote again")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		DELETE FROM vote WHERE room_id = $1 AND participant_key = $2
	`, room.ID, p.Key)
	if err != nil {
		slog.Error("failed to delete vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to retract vote")
		return
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("vote retracted", "room_id", room.ID, "participant_key", p.Key)
		notify(r.Context(), h.broker, room.ID)
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Message: "Vote retracted",
	})
}

// Reveal handles POST /rooms/{id}/reveal
// Anyone seated in the room may reveal. Revealing twice is a no-op.
func (h *VotingHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	ctx := r.Context()

	c, err := resolveCaller(ctx, h.db, h.cfg, r, room.ID)
	if err != nil {
		slog.Error("failed to resolve caller", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !requireParticipant(w, c) {
		return
	}

	if !room.Revealed {
		var voteCount int
		if err := h.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM vote WHERE room_id = $1
		`, room.ID).Scan(&voteCount); err != nil {
			slog.Error("failed to count votes", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if voteCount == 0 {
			middleware.ErrorResponse(w, http.StatusConflict, "Nothing to reveal; no votes cast yet")
			return
		}

		if _, err := h.db.ExecContext(ctx, `
			UPDATE room SET revealed = $1 WHERE id = $2
		`, true, room.ID); err != nil {
			slog.Error("failed to reveal votes", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reveal votes")
			return
		}
		room.Revealed = true

		slog.Info("votes revealed", "room_id", room.ID, "vote_count", voteCount)
		notify(ctx, h.broker, room.ID)
	}

	results, err := roomResults(ctx, h.db, room)
	if err != nil {
		slog.Error("failed to compute results", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// Reset handles POST /rooms/{id}/reset
// Clears every vote and hides the table again for the next round
func (h *VotingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	ctx := r.Context()

	c, err := resolveCaller(ctx, h.db, h.cfg, r, room.ID)
	if err != nil {
		slog.Error("failed to resolve caller", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !requireParticipant(w, c) {
		return
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE room_id = $1`, room.ID); err != nil {
		slog.Error("failed to clear votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset room")
		return
	}
	if _, err := tx.ExecContext(ctx, `UPDATE room SET revealed = $1 WHERE id = $2`, false, room.ID); err != nil {
		slog.Error("failed to hide votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset room")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset room")
		return
	}

	slog.Info("room reset", "room_id", room.ID)
	notify(ctx, h.broker, room.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Message: "Room reset",
	})
}
