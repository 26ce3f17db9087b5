// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
	"github.com/danielhkuo/planning-poker/testutil"
)

// testEnv wires every handler to one database and one in-process hub
type testEnv struct {
	db  *sql.DB
	cfg cliparse.Config
	hub *realtime.Hub

	rooms        *RoomHandler
	participants *ParticipantHandler
	voting       *VotingHandler
	results      *ResultsHandler
	users        *UserHandler
	events       *EventsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub()
	t.Cleanup(func() { hub.Close() })

	return &testEnv{
		db:           db,
		cfg:          cfg,
		hub:          hub,
		rooms:        NewRoomHandler(db, cfg, hub),
		participants: NewParticipantHandler(db, cfg, hub),
		voting:       NewVotingHandler(db, cfg, hub),
		results:      NewResultsHandler(db, cfg),
		users:        NewUserHandler(db, cfg),
		events:       NewEventsHandler(db, cfg, hub),
	}
}

// roomRequest builds a request for a /rooms/{id}/... route with the path
// value already set, as the mux would.
func roomRequest(method, path, roomID string, body interface{}, headers map[string]string) *http.Request {
	req := testutil.MakeRequest(method, path, body, headers)
	req.SetPathValue("id", roomID)
	return req
}

func withSession(token string) map[string]string {
	return map[string]string{"X-Session-Token": token}
}

func withAdminKey(key string) map[string]string {
	return map[string]string{"X-Admin-Key": key}
}

// getView fetches the room view as the holder of token sees it
func (e *testEnv) getView(t *testing.T, roomID, token string) models.RoomView {
	t.Helper()

	headers := map[string]string{}
	if token != "" {
		headers["X-Session-Token"] = token
	}
	w := httptest.NewRecorder()
	e.rooms.GetRoom(w, roomRequest("GET", "/rooms/"+roomID, roomID, nil, headers))
	if w.Code != http.StatusOK {
		t.Fatalf("GetRoom failed: %d - %s", w.Code, w.Body.String())
	}

	var view models.RoomView
	testutil.AssertJSON(t, w, &view)
	return view
}

func (e *testEnv) countRows(t *testing.T, query string, args ...interface{}) int {
	t.Helper()

	var n int
	if err := e.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// assertNotified checks whether a publish reached ch. Hub publishes
// synchronously, so after the handler returns the wake-up is already
// buffered.
func assertNotified(t *testing.T, ch <-chan struct{}, want bool) {
	t.Helper()

	got := false
	select {
	case <-ch:
		got = true
	default:
	}
	if got != want {
		t.Errorf("room change notified = %v, want %v", got, want)
	}
}
