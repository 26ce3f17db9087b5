// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/testutil"
)

// eventServer serves only the event stream route
func eventServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/{id}/events", env.events.Events)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialEvents(t *testing.T, srv *httptest.Server, roomID, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rooms/" + roomID + "/events"
	if token != "" {
		url += "?session=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

// readUntil reads events until match returns true or the deadline passes
func readUntil(t *testing.T, conn *websocket.Conn, match func(models.Event) bool) models.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Failed waiting for event: %v", err)
		}
		if match(ev) {
			return ev
		}
	}
}

func participantNamed(view *models.RoomView, name string) *models.ParticipantView {
	for i := range view.Participants {
		if view.Participants[i].Name == name {
			return &view.Participants[i]
		}
	}
	return nil
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	srv := eventServer(t, env)
	roomID, adminKey, _ := testutil.CreateTestRoom(t, env.db, env.cfg, "")
	bob := testutil.AddTestParticipant(t, env.db, roomID, "Bob")

	conn, _, err := dialEvents(t, srv, roomID, bob.SessionToken)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	t.Run("initial view", func(t *testing.T) {
		ev := readUntil(t, conn, func(ev models.Event) bool {
			if ev.Type != models.EventRoom || ev.Room == nil {
				return false
			}
			p := participantNamed(ev.Room, "Bob")
			return p != nil && p.IsConnected
		})

		if ev.Room.Me == nil || ev.Room.Me.Key != bob.Key {
			t.Errorf("Expected view for Bob, got me=%+v", ev.Room.Me)
		}
		if host := participantNamed(ev.Room, "Host"); host == nil || host.IsConnected {
			t.Errorf("Expected Host offline, got %+v", host)
		}
	})

	t.Run("vote pushes an update", func(t *testing.T) {
		testutil.AssertStatus(t, env.vote(t, roomID, "5", withSession(bob.SessionToken)), http.StatusCreated)

		ev := readUntil(t, conn, func(ev models.Event) bool {
			return ev.Room != nil && ev.Room.VoteCount == 1
		})
		if ev.Room.Me.Vote == nil || *ev.Room.Me.Vote != "5" {
			t.Errorf("Expected own vote in stream, got %+v", ev.Room.Me)
		}
		if len(ev.Room.Votes) != 0 {
			t.Errorf("Votes leaked before reveal: %v", ev.Room.Votes)
		}
	})

	t.Run("delete ends the stream", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.rooms.DeleteRoom(w, roomRequest("DELETE", "/rooms/"+roomID, roomID, nil, withAdminKey(adminKey)))
		testutil.AssertStatus(t, w, http.StatusOK)

		readUntil(t, conn, func(ev models.Event) bool {
			return ev.Type == models.EventDeleted
		})

		var ev models.Event
		if err := conn.ReadJSON(&ev); err == nil {
			t.Errorf("Expected the stream to close, got %+v", ev)
		}
	})
}

func TestEventsWatcherWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	srv := eventServer(t, env)
	roomID, _, _ := testutil.CreateTestRoom(t, env.db, env.cfg, "")

	conn, _, err := dialEvents(t, srv, roomID, "")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	ev := readUntil(t, conn, func(ev models.Event) bool { return ev.Type == models.EventRoom })
	if ev.Room.Me != nil {
		t.Errorf("Expected no seat for a watcher, got %+v", ev.Room.Me)
	}
	if n := env.countRows(t, `SELECT COUNT(*) FROM participant WHERE room_id = $1 AND is_connected = $2`, roomID, true); n != 0 {
		t.Errorf("Watcher marked %d participants connected", n)
	}
}

func TestEventsRejected(t *testing.T) {
	env := newTestEnv(t)
	srv := eventServer(t, env)
	roomID, _, _ := testutil.CreateTestRoom(t, env.db, env.cfg, "")

	tests := []struct {
		name           string
		roomID         string
		token          string
		expectedStatus int
	}{
		{"bad session", roomID, "bogus", http.StatusUnauthorized},
		{"missing room", "missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialEvents(t, srv, tt.roomID, tt.token)
			if err == nil {
				conn.Close()
				t.Fatal("Expected handshake to fail")
			}
			if resp == nil || resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %+v", tt.expectedStatus, resp)
			}
		})
	}
}

func TestEventsDisconnectMarksOffline(t *testing.T) {
	env := newTestEnv(t)
	srv := eventServer(t, env)
	roomID, _, host := testutil.CreateTestRoom(t, env.db, env.cfg, "")

	connected := func() bool {
		var c bool
		if err := env.db.QueryRow(`SELECT is_connected FROM participant WHERE room_id = $1 AND participant_key = $2`,
			roomID, host.Key).Scan(&c); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		return c
	}

	first, _, err := dialEvents(t, srv, roomID, host.SessionToken)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	second, _, err := dialEvents(t, srv, roomID, host.SessionToken)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	readUntil(t, first, func(ev models.Event) bool { return ev.Type == models.EventRoom })
	readUntil(t, second, func(ev models.Event) bool { return ev.Type == models.EventRoom })

	if !connected() {
		t.Fatal("Expected host connected")
	}

	waitFor := func(want bool, d time.Duration) bool {
		deadline := time.Now().Add(d)
		for time.Now().Before(deadline) {
			if connected() == want {
				return true
			}
			time.Sleep(20 * time.Millisecond)
		}
		return false
	}

	// One tab closed, one still open
	first.Close()
	if waitFor(false, 300*time.Millisecond) {
		t.Error("Host went offline while a stream was still open")
	}

	second.Close()
	if !waitFor(false, 3*time.Second) {
		t.Error("Expected host offline after the last stream closed")
	}
}
