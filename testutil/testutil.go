// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/planning-poker/auth"
	"github.com/danielhkuo/planning-poker/cliparse"
	"github.com/danielhkuo/planning-poker/db"
	"github.com/danielhkuo/planning-poker/scales"
)

// TestDSN returns a SQLite DSN for a database file inside dir
func TestDSN(dir string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		filepath.Join(dir, "planning-poker.db"))
}

// SetupTestDB creates a fresh SQLite database with the full schema.
// Every test gets its own file, removed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := GetTestConfig()
	cfg.DatabaseURL = TestDSN(t.TempDir())

	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseType: cliparse.DatabaseSQLite,
		AdminKeySalt: "test-admin-salt",
		BaseURL:      "http://poker.test",
	}
}

// TestSeat is a participant created directly in the database
type TestSeat struct {
	Key          string
	Name         string
	SessionToken string
}

// CreateTestRoom inserts a room with an admin participant named "Host" and
// returns the room id, its admin key and the admin's seat.
func CreateTestRoom(t *testing.T, conn *sql.DB, cfg cliparse.Config, scaleType string) (roomID, adminKey string, host TestSeat) {
	t.Helper()

	if scaleType == "" {
		scaleType = scales.Fibonacci
	}

	roomID, err := auth.GenerateRoomID()
	if err != nil {
		t.Fatalf("Failed to generate room id: %v", err)
	}
	adminKey = auth.GenerateAdminKey(roomID, cfg.AdminKeySalt)

	_, err = conn.Exec(`
		INSERT INTO room (id, name, scale_type, revealed, chart_type, created_at)
		VALUES ($1, 'Test Room', $2, $3, 'pie', $4)
	`, roomID, scaleType, false, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}

	host = insertSeat(t, conn, roomID, "Host", true, time.Now().UTC())
	return roomID, adminKey, host
}

// AddTestParticipant inserts a regular participant. Join times are spaced
// so the room view ordering is deterministic.
func AddTestParticipant(t *testing.T, conn *sql.DB, roomID, name string) TestSeat {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM participant WHERE room_id = $1`, roomID).Scan(&n); err != nil {
		t.Fatalf("Failed to count participants: %v", err)
	}
	return insertSeat(t, conn, roomID, name, false, time.Now().UTC().Add(time.Duration(n)*time.Second))
}

func insertSeat(t *testing.T, conn *sql.DB, roomID, name string, isAdmin bool, joinedAt time.Time) TestSeat {
	t.Helper()

	key, _ := auth.GenerateParticipantKey()
	token, _ := auth.GenerateSessionToken()

	_, err := conn.Exec(`
		INSERT INTO participant (room_id, participant_key, name, is_admin, session_token, is_connected, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, roomID, key, name, isAdmin, token, false, joinedAt)
	if err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}

	return TestSeat{Key: key, Name: name, SessionToken: token}
}

// CastTestVote stores a vote for a participant without going through the API
func CastTestVote(t *testing.T, conn *sql.DB, roomID, participantKey, value string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO vote (room_id, participant_key, value, cast_at)
		VALUES ($1, $2, $3, $4)
	`, roomID, participantKey, value, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// SetTestRevealed flips the revealed flag of a room
func SetTestRevealed(t *testing.T, conn *sql.DB, roomID string, revealed bool) {
	t.Helper()

	if _, err := conn.Exec(`UPDATE room SET revealed = $1 WHERE id = $2`, revealed, roomID); err != nil {
		t.Fatalf("Failed to update room: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
