// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/db"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
)

type ParticipantHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	broker realtime.Broker
}

func NewParticipantHandler(db *sql.DB, cfg cliparse.Config, broker realtime.Broker) *ParticipantHandler {
	return &ParticipantHandler{db: db, cfg: cfg, broker: broker}
}

// JoinRoom handles POST /rooms/{id}/join
// A request carrying the X-Session-Token of an existing seat takes that seat
// back instead of creating a new one.
func (h *ParticipantHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	var req models.JoinRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name, ok := cleanName(req.Name, models.MaxParticipantNameLength)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required (max 50 characters)")
		return
	}

	userID, ok := userIDFromRequest(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-User-ID is too long")
		return
	}

	ctx := r.Context()

	existing, err := loadParticipantBySession(ctx, h.db, room.ID, r.Header.Get("X-Session-Token"))
	switch {
	case err == nil:
		h.rejoin(w, r, room, existing, name, userID)
		return
	case !errors.Is(err, ErrParticipantNotFound):
		slog.Error("failed to query participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	taken, err := nameTaken(ctx, h.db, room.ID, name, "")
	if err != nil {
		slog.Error("failed to check name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "Name already taken in this room")
		return
	}

	participantKey, err := auth.GenerateParticipantKey()
	if err != nil {
		slog.Error("failed to generate participant key", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join room")
		return
	}
	sessionToken, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join room")
		return
	}

	var uid *string
	if userID != "" {
		uid = &userID
	}

	// The unique name index settles races between two joins with one name
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO participant (room_id, participant_key, name, is_admin, session_token, user_id, is_connected, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, room.ID, participantKey, name, false, sessionToken, uid, false, time.Now().UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Name already taken in this room")
			return
		}
		slog.Error("failed to insert participant", "error", err, "room_id", room.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join room")
		return
	}

	if err := LinkUserToRoom(ctx, h.db, userID, room.ID, models.RoleParticipant); err != nil {
		// Non-fatal: the seat exists, it just won't show in the user's room list
		slog.Warn("failed to link user to room", "error", err)
	}

	slog.Info("participant joined", "room_id", room.ID, "participant_key", participantKey)
	notify(ctx, h.broker, room.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.JoinRoomResponse{
		ParticipantKey: participantKey,
		SessionToken:   sessionToken,
		IsAdmin:        false,
		Rejoined:       false,
	})
}

func (h *ParticipantHandler) rejoin(w http.ResponseWriter, r *http.Request, room models.Room, p models.Participant, name, userID string) {
	ctx := r.Context()

	if name != p.Name {
		status, err := renameParticipant(ctx, h.db, room.ID, p.Key, name)
		if err != nil {
			slog.Error("failed to rename participant", "error", err)
		}
		if status != http.StatusOK {
			middleware.ErrorResponse(w, status, renameMessage(status))
			return
		}
	}

	if userID != "" {
		role := models.RoleParticipant
		if p.IsAdmin {
			role = models.RoleAdmin
		}
		if _, err := h.db.ExecContext(ctx, `
			UPDATE participant SET user_id = $1 WHERE room_id = $2 AND participant_key = $3
		`, userID, room.ID, p.Key); err != nil {
			slog.Warn("failed to attach user to participant", "error", err)
		}
		if err := LinkUserToRoom(ctx, h.db, userID, room.ID, role); err != nil {
			slog.Warn("failed to link user to room", "error", err)
		}
	}

	slog.Info("participant rejoined", "room_id", room.ID, "participant_key", p.Key)
	if name != p.Name {
		notify(ctx, h.broker, room.ID)
	}

	middleware.JSONResponse(w, http.StatusOK, models.JoinRoomResponse{
		ParticipantKey: p.Key,
		SessionToken:   p.SessionToken,
		IsAdmin:        p.IsAdmin,
		Rejoined:       true,
	})
}

// LeaveRoom handles POST /rooms/{id}/leave
func (h *ParticipantHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	p, ok := requireSession(w, r, h.db, room.ID)
	if !ok {
		return
	}

	if err := removeParticipant(r.Context(), h.db, room.ID, p.Key); err != nil {
		slog.Error("failed to remove participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to leave room")
		return
	}

	slog.Info("participant left", "room_id", room.ID, "participant_key", p.Key)
	notify(r.Context(), h.broker, room.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Message: "Left room",
	})
}

// RenameParticipant handles PUT /rooms/{id}/participants/me
// The participant keeps its key, so an existing vote follows the new name
func (h *ParticipantHandler) RenameParticipant(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	p, ok := requireSession(w, r, h.db, room.ID)
	if !ok {
		return
	}

	var req models.RenameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name, ok := cleanName(req.Name, models.MaxParticipantNameLength)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required (max 50 characters)")
		return
	}

	if name != p.Name {
		status, err := renameParticipant(r.Context(), h.db, room.ID, p.Key, name)
		if err != nil {
			slog.Error("failed to rename participant", "error", err)
		}
		if status != http.StatusOK {
			middleware.ErrorResponse(w, status, renameMessage(status))
			return
		}
		slog.Info("participant renamed", "room_id", room.ID, "participant_key", p.Key)
		notify(r.Context(), h.broker, room.ID)
	}

	middleware.JSONResponse(w, http.StatusOK, models.MeView{
		Key:     p.Key,
		Name:    name,
		IsAdmin: p.IsAdmin,
	})
}

// KickParticipant handles DELETE /rooms/{id}/participants/{key}
func (h *ParticipantHandler) KickParticipant(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	c, err := resolveCaller(r.Context(), h.db, h.cfg, r, room.ID)
	if err != nil {
		slog.Error("failed to resolve caller", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !requireAdmin(w, c) {
		return
	}

	key := r.PathValue("key")
	if key == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "participant key is required")
		return
	}

	err = removeParticipant(r.Context(), h.db, room.ID, key)
	if errors.Is(err, ErrParticipantNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Participant not found")
		return
	}
	if err != nil {
		slog.Error("failed to remove participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to remove participant")
		return
	}

	slog.Info("participant removed", "room_id", room.ID, "participant_key", key)
	notify(r.Context(), h.broker, room.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Message: "Participant removed",
	})
}

// requireSession resolves X-Session-Token to a seat in the room and writes
// the error response when there is none.
func requireSession(w http.ResponseWriter, r *http.Request, q queryer, roomID string) (models.Participant, bool) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Session-Token header required")
		return models.Participant{}, false
	}

	p, err := loadParticipantBySession(r.Context(), q, roomID, token)
	if errors.Is(err, ErrParticipantNotFound) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid session token for this room")
		return p, false
	}
	if err != nil {
		slog.Error("failed to query participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return p, false
	}
	return p, true
}

// renameParticipant returns the HTTP status the rename maps to
func renameParticipant(ctx context.Context, q queryer, roomID, key, name string) (int, error) {
	taken, err := nameTaken(ctx, q, roomID, name, key)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if taken {
		return http.StatusConflict, nil
	}

	_, err = q.ExecContext(ctx, `
		UPDATE participant SET name = $1 WHERE room_id = $2 AND participant_key = $3
	`, name, roomID, key)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return http.StatusConflict, nil
		}
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

func renameMessage(status int) string {
	if status == http.StatusConflict {
		return "Name already taken in this room"
	}
	return "Failed to update name"
}

// removeParticipant deletes a seat and its vote
func removeParticipant(ctx context.Context, conn *sql.DB, roomID, key string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM vote WHERE room_id = $1 AND participant_key = $2
	`, roomID, key); err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM participant WHERE room_id = $1 AND participant_key = $2
	`, roomID, key)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrParticipantNotFound
	}

	return tx.Commit()
}
