// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
)

type UserHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewUserHandler(db *sql.DB, cfg cliparse.Config) *UserHandler {
	return &UserHandler{db: db, cfg: cfg}
}

// RegisterUser handles POST /users/register
// Echoes a known X-User-ID or hands out a fresh one for the browser to keep
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-User-ID is too long")
		return
	}

	if userID != "" {
		middleware.JSONResponse(w, http.StatusOK, models.RegisterUserResponse{
			UserID: userID,
			IsNew:  false,
		})
		return
	}

	userID = auth.GenerateUserID()
	slog.Info("user registered", "user_id", userID)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterUserResponse{
		UserID: userID,
		IsNew:  true,
	})
}

// GetMyRooms handles GET /users/me/rooms
// Returns rooms this user created or joined, newest link first
func (h *UserHandler) GetMyRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok || userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT
			r.id,
			r.name,
			r.revealed,
			ur.role,
			ur.linked_at,
			(SELECT COUNT(*) FROM participant p WHERE p.room_id = r.id) AS participant_count
		FROM user_room ur
		JOIN room r ON ur.room_id = r.id
		WHERE ur.user_id = $1 AND r.deleted_at IS NULL
		ORDER BY ur.linked_at DESC, r.id
	`, userID)
	if err != nil {
		slog.Error("failed to query user rooms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	rooms := []models.UserRoomSummary{}
	for rows.Next() {
		var summary models.UserRoomSummary
		if err := rows.Scan(
			&summary.RoomID,
			&summary.Name,
			&summary.Revealed,
			&summary.Role,
			&summary.LinkedAt,
			&summary.ParticipantCount,
		); err != nil {
			slog.Error("failed to scan user room", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		summary.LinkedAgo = humanize.Time(summary.LinkedAt)
		rooms = append(rooms, summary)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read user rooms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetMyRoomsResponse{
		Rooms: rooms,
	})
}

// userIDFromRequest reads X-User-ID. ok is false when the header is
// present but unusable.
func userIDFromRequest(r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if len(userID) > models.MaxUserIDLength {
		return "", false
	}
	return userID, true
}

// LinkUserToRoom records that a user belongs to a room. Linking again
// refreshes linked_at; an admin link is never downgraded.
func LinkUserToRoom(ctx context.Context, q queryer, userID, roomID, role string) error {
	if userID == "" {
		return nil
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO user_room (user_id, room_id, role, linked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, room_id) DO UPDATE SET
			role = CASE WHEN user_room.role = 'admin' THEN 'admin' ELSE EXCLUDED.role END,
			linked_at = EXCLUDED.linked_at
	`, userID, roomID, role, time.Now().UTC())

	return err
}
