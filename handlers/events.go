// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/middleware"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

type EventsHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	broker   realtime.Broker
	upgrader websocket.Upgrader

	mu    sync.Mutex
	seats map[string]int // open connections per room/participant
}

func NewEventsHandler(db *sql.DB, cfg cliparse.Config, broker realtime.Broker) *EventsHandler {
	return &EventsHandler{
		db:     db,
		cfg:    cfg,
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same policy as the CORS middleware: any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		seats: make(map[string]int),
	}
}

// Events handles GET /rooms/{id}/events?session=TOKEN
// Streams the room view as JSON over a WebSocket: once on connect and again
// after every change. A room that gets deleted sends {"type":"deleted"} and
// the connection is closed.
func (h *EventsHandler) Events(w http.ResponseWriter, r *http.Request) {
	room, ok := roomForRequest(w, r, h.db)
	if !ok {
		return
	}

	token := r.URL.Query().Get("session")
	var seat *models.Participant
	if token != "" {
		p, err := loadParticipantBySession(r.Context(), h.db, room.ID, token)
		if errors.Is(err, ErrParticipantNotFound) {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid session token for this room")
			return
		}
		if err != nil {
			slog.Error("failed to query participant", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		seat = &p
	}

	// Subscribe before the first view so no change slips in between
	changes, unsubscribe := h.broker.Subscribe(room.ID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		slog.Warn("websocket upgrade failed", "error", err, "room_id", room.ID)
		return
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	slog.Info("event stream opened", "room_id", room.ID, "remote", middleware.GetClientIP(r))
	defer slog.Info("event stream closed", "room_id", room.ID)

	if seat != nil {
		h.connect(ctx, room.ID, seat.Key)
		defer h.disconnect(context.WithoutCancel(ctx), room.ID, seat.Key)
	}

	go readPump(conn, stop)

	if !h.sendView(ctx, conn, room.ID, token) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if !h.sendView(ctx, conn, room.ID, token) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are handled.
// Clients are not expected to send anything else.
func readPump(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()

	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sendView pushes the current room view. It returns false when the stream
// should end.
func (h *EventsHandler) sendView(ctx context.Context, conn *websocket.Conn, roomID, token string) bool {
	room, err := loadRoom(ctx, h.db, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(models.Event{Type: models.EventDeleted}); err != nil {
			return false
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room deleted"))
		return false
	}
	if err != nil {
		// Keep the stream; the next change retries
		slog.Error("failed to load room for event", "error", err, "room_id", roomID)
		return ctx.Err() == nil
	}

	view, err := loadRoomView(ctx, h.db, room, token)
	if err != nil {
		slog.Error("failed to load room view for event", "error", err, "room_id", roomID)
		return ctx.Err() == nil
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(models.Event{Type: models.EventRoom, Room: &view}); err != nil {
		return false
	}
	return true
}

func seatKey(roomID, participantKey string) string {
	return roomID + "/" + participantKey
}

// connect marks the participant online on its first open stream
func (h *EventsHandler) connect(ctx context.Context, roomID, participantKey string) {
	h.mu.Lock()
	h.seats[seatKey(roomID, participantKey)]++
	first := h.seats[seatKey(roomID, participantKey)] == 1
	h.mu.Unlock()

	if first {
		h.setConnected(ctx, roomID, participantKey, true)
	}
}

// disconnect marks the participant offline once its last stream closes
func (h *EventsHandler) disconnect(ctx context.Context, roomID, participantKey string) {
	key := seatKey(roomID, participantKey)

	h.mu.Lock()
	h.seats[key]--
	last := h.seats[key] <= 0
	if last {
		delete(h.seats, key)
	}
	h.mu.Unlock()

	if last {
		h.setConnected(ctx, roomID, participantKey, false)
	}
}

func (h *EventsHandler) setConnected(ctx context.Context, roomID, participantKey string, connected bool) {
	res, err := h.db.ExecContext(ctx, `
		UPDATE participant SET is_connected = $1 WHERE room_id = $2 AND participant_key = $3
	`, connected, roomID, participantKey)
	if err != nil {
		slog.Warn("failed to update connection state", "error", err, "room_id", roomID)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		notify(ctx, h.broker, roomID)
	}
}
