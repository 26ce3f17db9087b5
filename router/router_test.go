// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/realtime"
	"github.com/danielhkuo/planning-poker/testutil"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	db := testutil.SetupTestDB(t)
	hub := realtime.NewHub()
	t.Cleanup(func() { hub.Close() })

	return NewRouter(db, testutil.GetTestConfig(), hub)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "planning-poker API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux := newTestMux(t)

	// Test that routes respond (handler is invoked)
	// Note: Some routes return 404 when data doesn't exist, which is valid handler behavior
	testCases := []struct {
		method string
		path   string
	}{
		// Health, root and scales
		{"GET", "/health"},
		{"GET", "/"},
		{"GET", "/scales"},

		// Room routes
		{"POST", "/rooms"},
		{"GET", "/rooms/test-id"},
		{"DELETE", "/rooms/test-id"},
		{"PUT", "/rooms/test-id/chart-type"},

		// Participant routes
		{"POST", "/rooms/test-id/join"},
		{"POST", "/rooms/test-id/leave"},
		{"PUT", "/rooms/test-id/participants/me"},
		{"DELETE", "/rooms/test-id/participants/abc"},

		// Voting routes
		{"POST", "/rooms/test-id/votes"},
		{"DELETE", "/rooms/test-id/votes"},
		{"POST", "/rooms/test-id/reveal"},
		{"POST", "/rooms/test-id/reset"},
		{"GET", "/rooms/test-id/results"},
		{"GET", "/rooms/test-id/events"},

		// User routes
		{"POST", "/users/register"},
		{"GET", "/users/me/rooms"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			// Route should be matched (not 405 Method Not Allowed for these specific routes)
			// 400, 401, 404 are all valid responses depending on handler logic
			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},                 // Only GET is defined
		{"DELETE", "/rooms/test-id/reveal"}, // Only POST is defined
		{"PUT", "/rooms/test-id/votes"},     // POST and DELETE only
		{"POST", "/rooms/test-id/results"},  // Only GET is defined
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub()
	defer hub.Close()

	roomID, adminKey, host := testutil.CreateTestRoom(t, db, cfg, "")
	bob := testutil.AddTestParticipant(t, db, roomID, "Bob")

	mux := NewRouter(db, cfg, hub)

	t.Run("room ID extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/rooms/"+roomID, nil)
		req.Header.Set("X-Session-Token", host.SessionToken)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 for existing room, got %d. Body: %s", w.Code, w.Body.String())
		}

		var view models.RoomView
		testutil.AssertJSON(t, w, &view)
		if view.Room.ID != roomID {
			t.Errorf("Expected room %s, got %s", roomID, view.Room.ID)
		}
	})

	t.Run("participant key extraction", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/rooms/"+roomID+"/participants/"+bob.Key, nil)
		req.Header.Set("X-Admin-Key", adminKey)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 kicking Bob, got %d. Body: %s", w.Code, w.Body.String())
		}
	})

	t.Run("me is not a participant key", func(t *testing.T) {
		req := testutil.MakeRequest("PUT", "/rooms/"+roomID+"/participants/me",
			models.RenameRequest{Name: "Hostess"},
			map[string]string{"X-Session-Token": host.SessionToken})
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected rename to succeed, got %d. Body: %s", w.Code, w.Body.String())
		}
	})
}

func TestSpecificMethodRouting(t *testing.T) {
	mux := newTestMux(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"POST to health endpoint", "POST", "/health", http.StatusMethodNotAllowed},
		{"PUT to join endpoint", "PUT", "/rooms/test-id/join", http.StatusMethodNotAllowed},
		{"GET missing room", "GET", "/rooms/test-id", http.StatusNotFound},
		{"register without id", "POST", "/users/register", http.StatusCreated},
		{"scales", "GET", "/scales", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected %d for %s %s, got %d", tc.expectedStatus, tc.method, tc.path, w.Code)
			}
		})
	}
}
