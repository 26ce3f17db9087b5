// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scales"
	"github.com/danielhkuo/planning-poker/testutil"
)

func (e *testEnv) vote(t *testing.T, roomID, value string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.voting.CastVote(w, roomRequest("POST", "/rooms/"+roomID+"/votes", roomID,
		models.CastVoteRequest{Value: value}, headers))
	return w
}

func (e *testEnv) reveal(t *testing.T, roomID string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.voting.Reveal(w, roomRequest("POST", "/rooms/"+roomID+"/reveal", roomID, nil, headers))
	return w
}

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	roomID, adminKey, _ := testutil.CreateTestRoom(t, env.db, env.cfg, scales.Modified)
	bob := testutil.AddTestParticipant(t, env.db, roomID, "Bob")

	tests := []struct {
		name           string
		value          string
		headers        map[string]string
		expectedStatus int
	}{
		{"first vote", "3", withSession(bob.SessionToken), http.StatusCreated},
		{"change vote", scales.Half, withSession(bob.SessionToken), http.StatusOK},
		{"coffee card", scales.Coffee, withSession(bob.SessionToken), http.StatusOK},
		{"value off the scale", "21", withSession(bob.SessionToken), http.StatusBadRequest},
		{"empty value", "", withSession(bob.SessionToken), http.StatusBadRequest},
		{"no session", "3", nil, http.StatusUnauthorized},
		{"admin key is not a seat", "3", withAdminKey(adminKey), http.StatusUnauthorized},
		{"bogus session", "3", withSession("bogus"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, cancel := env.hub.Subscribe(roomID)
			defer cancel()

			w := env.vote(t, roomID, tt.value, tt.headers)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			ok := tt.expectedStatus == http.StatusCreated || tt.expectedStatus == http.StatusOK
			assertNotified(t, changes, ok)
		})
	}

	if n := env.countRows(t, `SELECT COUNT(*) FROM vote WHERE room_id = $1`, roomID); n != 1 {
		t.Errorf("Expected a single vote row for Bob, got %d", n)
	}
	view := env.getView(t, roomID, bob.SessionToken)
	if view.Me == nil || view.Me.Vote == nil || *view.Me.Vote != scales.Coffee {
		t.Errorf("Expected Bob's latest vote to be coffee, got %+v", view.Me)
	}
}

func TestCastVoteAfterReveal(t *testing.T) {
	env := newTestEnv(t)
	roomID, _, host := testutil.CreateTestRoom(t, env.db, env.cfg, "")
	testutil.CastTestVote(t, env.db, roomID, host.Key, "5")
	testutil.SetTestRevealed(t, env.db, roomID, true)

	w := env.vote(t, roomID, "8", withSession(host.SessionToken))
	testutil.AssertStatus(t, w, http.StatusConflict)

	w = httptest.NewRecorder()
	env.voting.RetractVote(w, roomRequest("DELETE", "/rooms/"+roomID+"/votes", roomID, nil, withSession(host.SessionToken)))
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestRetractVote(t *testing.T) {
	env := newTestEnv(t)
	roomID, _, host := testutil.CreateTestRoom(t, env.db, env.cfg, "")
	testutil.CastTestVote(t, env.db, roomID, host.Key, "5")

	changes, cancel := env.hub.Subscribe(roomID)
	defer cancel()

	w := httptest.NewRecorder()
	env.voting.RetractVote(w, roomRequest("DELETE", "/rooms/"+roomID+"/votes", roomID, nil, withSession(host.SessionToken)))
	testutil.AssertStatus(t, w, http.StatusOK)
	assertNotified(t, changes, true)

	view := env.getView(t, roomID, host.SessionToken)
	if view.VoteCount != 0 || view.Me.Vote != nil {
		t.Errorf("Expected vote cleared, got count=%d me=%+v", view.VoteCount, view.Me)
	}

	// Nothing left to retract: still fine, nothing published
	w = httptest.NewRecorder()
	env.voting.RetractVote(w, roomRequest("DELETE", "/rooms/"+roomID+"/votes", roomID, nil, withSession(host.SessionToken)))
	testutil.AssertStatus(t, w, http.StatusOK)
	assertNotified(t, changes, false)
}

func TestReveal(t *testing.T) {
	env := newTestEnv(t)
	roomID, adminKey, host := testutil.CreateTestRoom(t, env.db, env.cfg, "")
	bob := testutil.AddTestParticipant(t, env.db, roomID, "Bob")

	t.Run("nothing to reveal", func(t *testing.T) {
		testutil.AssertStatus(t, env.reveal(t, roomID, withSession(bob.SessionToken)), http.StatusConflict)
	})

	testutil.CastTestVote(t, env.db, roomID, host.Key, "3")
	testutil.CastTestVote(t, env.db, roomID, bob.Key, "5")

	t.Run("anonymous cannot reveal", func(t *testing.T) {
		testutil.AssertStatus(t, env.reveal(t, roomID, nil), http.StatusUnauthorized)
	})

	t.Run("any participant reveals", func(t *testing.T) {
		changes, cancel := env.hub.Subscribe(roomID)
		defer cancel()

		w := env.reveal(t, roomID, withSession(bob.SessionToken))
		testutil.AssertStatus(t, w, http.StatusOK)
		assertNotified(t, changes, true)

		var results models.Results
		testutil.AssertJSON(t, w, &results)
		if results.VoteCount != 2 || !results.HasAverage || results.Average != 4 {
			t.Errorf("Unexpected results %+v", results)
		}
		if results.RoomID != roomID || results.ChartType != models.ChartPie {
			t.Errorf("Expected room metadata in results, got %+v", results)
		}

		view := env.getView(t, roomID, "")
		if !view.Room.Revealed {
			t.Error("Expected room revealed")
		}
	})

	t.Run("reveal twice is a no-op", func(t *testing.T) {
		changes, cancel := env.hub.Subscribe(roomID)
		defer cancel()

		testutil.AssertStatus(t, env.reveal(t, roomID, withAdminKey(adminKey)), http.StatusOK)
		assertNotified(t, changes, false)
	})
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	roomID, adminKey, host := testutil.CreateTestRoom(t, env.db, env.cfg, "")
	bob := testutil.AddTestParticipant(t, env.db, roomID, "Bob")
	testutil.CastTestVote(t, env.db, roomID, host.Key, "3")
	testutil.CastTestVote(t, env.db, roomID, bob.Key, "5")
	testutil.SetTestRevealed(t, env.db, roomID, true)

	reset := func(headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		env.voting.Reset(w, roomRequest("POST", "/rooms/"+roomID+"/reset", roomID, nil, headers))
		return w
	}

	testutil.AssertStatus(t, reset(nil), http.StatusUnauthorized)
	testutil.AssertStatus(t, reset(withAdminKey("nope")), http.StatusUnauthorized)

	changes, cancel := env.hub.Subscribe(roomID)
	defer cancel()

	testutil.AssertStatus(t, reset(withAdminKey(adminKey)), http.StatusOK)
	assertNotified(t, changes, true)

	view := env.getView(t, roomID, "")
	if view.Room.Revealed {
		t.Error("Expected room hidden after reset")
	}
	if view.VoteCount != 0 {
		t.Errorf("Expected no votes after reset, got %d", view.VoteCount)
	}
	if len(view.Participants) != 2 {
		t.Errorf("Reset must keep participants, got %d", len(view.Participants))
	}

	// Voting is open again
	testutil.AssertStatus(t, env.vote(t, roomID, "8", withSession(bob.SessionToken)), http.StatusCreated)
}
