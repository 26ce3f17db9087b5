// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
	"github.com/danielhkuo/planning-poker/scales"
)

type RoomHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	broker realtime.Broker
}

func NewRoomHandler(db *sql.DB, cfg cliparse.Config, broker realtime.Broker) *RoomHandler {
	return &RoomHandler{db: db, cfg: cfg, broker: broker}
}

// CreateRoom handles POST /rooms
// The creator is seated as the room's first participant and admin
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	name, ok := cleanName(req.Name, models.MaxRoomNameLength)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required (max 100 characters)")
		return
	}
	creatorName, ok := cleanName(req.CreatorName, models.MaxParticipantNameLength)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "creator_name is required (max 50 characters)")
		return
	}

	scaleType := strings.TrimSpace(req.ScaleType)
	if scaleType == "" {
		scaleType = scales.Fibonacci
	}
	if !scales.IsKnown(scaleType) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown scale_type: "+scaleType)
		return
	}

	userID, ok := userIDFromRequest(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-User-ID is too long")
		return
	}

	roomID, err := auth.GenerateRoomID()
	if err != nil {
		slog.Error("failed to generate room ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}
	participantKey, err := auth.GenerateParticipantKey()
	if err != nil {
		slog.Error("failed to generate participant key", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}
	sessionToken, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	adminKey := auth.GenerateAdminKey(roomID, h.cfg.AdminKeySalt)

	var adminID *string
	if userID != "" {
		adminID = &userID
	}

	ctx := r.Context()
	now := time.Now().UTC()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO room (id, name, scale_type, revealed, chart_type, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, roomID, name, scaleType, false, models.ChartPie, adminID, now)
	if err != nil {
		slog.Error("failed to insert room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participant (room_id, participant_key, name, is_admin, session_token, user_id, is_connected, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, roomID, participantKey, creatorName, true, sessionToken, adminID, false, now)
	if err != nil {
		slog.Error("failed to insert creator", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	if err := LinkUserToRoom(ctx, tx, userID, roomID, models.RoleAdmin); err != nil {
		slog.Error("failed to link user to room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	slog.Info("room created", "room_id", roomID, "scale", scaleType, "creator", creatorName)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateRoomResponse{
		RoomID:         roomID,
		AdminKey:       adminKey,
		ParticipantKey: participantKey,
		SessionToken:   sessionToken,
		ShareURL:       h.cfg.RoomURL(roomID),
	})
}

// GetRoom handles GET /rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	view, err := loadRoomView(r.Context(), h.db, room, r.Header.Get("X-Session-Token"))
	if err != nil {
		slog.Error("failed to load room view", "error", err, "room_id", room.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, view)
}

// SetChartType handles PUT /rooms/{id}/chart-type
func (h *RoomHandler) SetChartType(w http.ResponseWriter, r *http.Request) {
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
	if !requireParticipant(w, c) {
		return
	}

	var req models.SetChartTypeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ChartType != models.ChartPie && req.ChartType != models.ChartBar {
		middleware.ErrorResponse(w, http.StatusBadRequest, "chart_type must be one of: pie, bar")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		UPDATE room SET chart_type = $1 WHERE id = $2
	`, req.ChartType, room.ID)
	if err != nil {
		slog.Error("failed to update chart type", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update room")
		return
	}

	notify(r.Context(), h.broker, room.ID)

	room.ChartType = req.ChartType
	middleware.JSONResponse(w, http.StatusOK, room)
}

// DeleteRoom handles DELETE /rooms/{id}
// Rooms are soft deleted; every lookup treats them as missing afterwards
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
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

	_, err = h.db.ExecContext(r.Context(), `
		UPDATE room SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL
	`, time.Now().UTC(), room.ID)
	if err != nil {
		slog.Error("failed to delete room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	slog.Info("room deleted", "room_id", room.ID)
	notify(r.Context(), h.broker, room.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{
		Message: "Room deleted",
	})
}

func requireParticipant(w http.ResponseWriter, c caller) bool {
	if c.known() {
		return true
	}
	middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Session-Token or X-Admin-Key header required")
	return false
}

func requireAdmin(w http.ResponseWriter, c caller) bool {
	if c.admin {
		return true
	}
	if c.participant != nil {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the room admin can do that")
		return false
	}
	middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
	return false
}
