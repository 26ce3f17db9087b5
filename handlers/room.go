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
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
	"github.com/danielhkuo/planning-poker/scales"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadRoom fetches a room. Soft-deleted rooms are reported as ErrRoomNotFound.
func loadRoom(ctx context.Context, q queryer, roomID string) (models.Room, error) {
	var room models.Room
	var adminID sql.NullString
	var deletedAt sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT id, name, scale_type, revealed, chart_type, admin_id, created_at, deleted_at
		FROM room
		WHERE id = $1
	`, roomID).Scan(
		&room.ID, &room.Name, &room.ScaleType, &room.Revealed,
		&room.ChartType, &adminID, &room.CreatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return room, ErrRoomNotFound
	}
	if err != nil {
		return room, fmt.Errorf("failed to query room: %w", err)
	}
	if deletedAt.Valid {
		return room, ErrRoomNotFound
	}
	if adminID.Valid {
		room.AdminID = &adminID.String
	}
	return room, nil
}

// loadParticipantBySession finds the seat a session token belongs to
func loadParticipantBySession(ctx context.Context, q queryer, roomID, sessionToken string) (models.Participant, error) {
	var p models.Participant
	if sessionToken == "" {
		return p, ErrParticipantNotFound
	}

	var userID sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT participant_key, room_id, name, is_admin, is_connected, joined_at, session_token, user_id
		FROM participant
		WHERE room_id = $1 AND session_token = $2
	`, roomID, sessionToken).Scan(
		&p.Key, &p.RoomID, &p.Name, &p.IsAdmin, &p.IsConnected,
		&p.JoinedAt, &p.SessionToken, &userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrParticipantNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to query participant: %w", err)
	}
	if userID.Valid {
		p.UserID = &userID.String
	}
	return p, nil
}

// nameTaken reports whether another seat in the room already uses name,
// ignoring case. exceptKey excludes the caller's own seat.
func nameTaken(ctx context.Context, q queryer, roomID, name, exceptKey string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM participant
			WHERE room_id = $1 AND LOWER(name) = LOWER($2) AND participant_key <> $3
		)
	`, roomID, name, exceptKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return exists, nil
}

// loadRoomView assembles what a client renders for a room. Vote values
// stay hidden until the room is revealed, except the caller's own.
func loadRoomView(ctx context.Context, q queryer, room models.Room, sessionToken string) (models.RoomView, error) {
	view := models.RoomView{
		Room:         room,
		Scale:        scales.Lookup(room.ScaleType),
		Participants: []models.ParticipantView{},
		Votes:        map[string]string{},
	}

	rows, err := q.QueryContext(ctx, `
		SELECT p.participant_key, p.name, p.is_admin, p.is_connected, p.joined_at, p.session_token, v.value
		FROM participant p
		LEFT JOIN vote v ON v.room_id = p.room_id AND v.participant_key = p.participant_key
		WHERE p.room_id = $1
		ORDER BY p.joined_at, p.participant_key
	`, room.ID)
	if err != nil {
		return view, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pv models.ParticipantView
		var token string
		var vote sql.NullString
		if err := rows.Scan(&pv.Key, &pv.Name, &pv.IsAdmin, &pv.IsConnected, &pv.JoinedAt, &token, &vote); err != nil {
			return view, fmt.Errorf("failed to scan participant: %w", err)
		}

		pv.HasVoted = vote.Valid
		if vote.Valid {
			view.VoteCount++
			if room.Revealed {
				value := vote.String
				pv.Vote = &value
				view.Votes[pv.Name] = value
			}
		}

		if sessionToken != "" && token == sessionToken {
			me := &models.MeView{Key: pv.Key, Name: pv.Name, IsAdmin: pv.IsAdmin}
			if vote.Valid {
				value := vote.String
				me.Vote = &value
			}
			view.Me = me
		}

		view.Participants = append(view.Participants, pv)
	}
	if err := rows.Err(); err != nil {
		return view, fmt.Errorf("failed to read participants: %w", err)
	}

	// Timestamps can tie on coarse clocks
	sort.SliceStable(view.Participants, func(i, j int) bool {
		a, b := view.Participants[i], view.Participants[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Key < b.Key
	})

	return view, nil
}

// caller is whoever is making a request against a room
type caller struct {
	participant *models.Participant
	admin       bool
}

func (c caller) known() bool {
	return c.admin || c.participant != nil
}

// resolveCaller checks X-Admin-Key and X-Session-Token. A request may carry
// neither, in which case the returned caller is anonymous.
func resolveCaller(ctx context.Context, q queryer, cfg cliparse.Config, r *http.Request, roomID string) (caller, error) {
	var c caller

	if key := r.Header.Get("X-Admin-Key"); key != "" {
		if err := auth.ValidateAdminKey(roomID, key, cfg.AdminKeySalt); err == nil {
			c.admin = true
		}
	}

	token := r.Header.Get("X-Session-Token")
	if token == "" {
		return c, nil
	}
	p, err := loadParticipantBySession(ctx, q, roomID, token)
	if errors.Is(err, ErrParticipantNotFound) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.participant = &p
	if p.IsAdmin {
		c.admin = true
	}
	return c, nil
}

// roomForRequest loads the room named in the path and writes the error
// response itself when that fails.
func roomForRequest(w http.ResponseWriter, r *http.Request, q queryer) (models.Room, bool) {
	roomID := r.PathValue("id")
	if roomID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "room_id is required")
		return models.Room{}, false
	}

	room, err := loadRoom(r.Context(), q, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Room not found")
		return room, false
	}
	if err != nil {
		slog.Error("failed to load room", "error", err, "room_id", roomID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return room, false
	}
	return room, true
}

// notify tells everyone watching the room that it changed. Failures are
// logged only; the write has already been committed.
func notify(ctx context.Context, broker realtime.Broker, roomID string) {
	if broker == nil {
		return
	}
	if err := broker.Publish(context.WithoutCancel(ctx), roomID); err != nil {
		slog.Warn("failed to publish room change", "error", err, "room_id", roomID)
	}
}

// cleanName trims a display name and checks its length
func cleanName(name string, maxLen int) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxLen {
		return name, false
	}
	return name, true
}
