package models

import (
	"time"

	"github.com/danielhkuo/planning-poker/scales"
)

// Chart type constants
const (
	ChartPie = "pie"
	ChartBar = "bar"
)

// Room link roles
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// Field limits
const (
	MaxRoomNameLength        = 100
	MaxParticipantNameLength = 50
	MaxUserIDLength          = 64
)

// Request types

type CreateRoomRequest struct {
	Name        string `json:"name"`
	ScaleType   string `json:"scale_type"`
	CreatorName string `json:"creator_name"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type CastVoteRequest struct {
	Value string `json:"value"`
}

type SetChartTypeRequest struct {
	ChartType string `json:"chart_type"`
}

// Response types

type CreateRoomResponse struct {
	RoomID         string `json:"room_id"`
	AdminKey       string `json:"admin_key"`
	ParticipantKey string `json:"participant_key"`
	SessionToken   string `json:"session_token"`
	ShareURL       string `json:"share_url"`
}

type JoinRoomResponse struct {
	ParticipantKey string `json:"participant_key"`
	SessionToken   string `json:"session_token"`
	IsAdmin        bool   `json:"is_admin"`
	Rejoined       bool   `json:"rejoined"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterUserResponse struct {
	UserID string `json:"user_id"`
	IsNew  bool   `json:"is_new"`
}

type UserRoomSummary struct {
	RoomID           string    `json:"room_id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Revealed         bool      `json:"revealed"`
	ParticipantCount int       `json:"participant_count"`
	LinkedAt         time.Time `json:"linked_at"`
	LinkedAgo        string    `json:"linked_ago"`
}

type GetMyRoomsResponse struct {
	Rooms []UserRoomSummary `json:"rooms"`
}

type ScalesResponse struct {
	Scales []scales.Scale `json:"scales"`
}

// Domain types

type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ScaleType string     `json:"scale_type"`
	Revealed  bool       `json:"revealed"`
	ChartType string     `json:"chart_type"`
	AdminID   *string    `json:"admin_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type Participant struct {
	Key          string    `json:"key"`
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	IsAdmin      bool      `json:"is_admin"`
	IsConnected  bool      `json:"is_connected"`
	JoinedAt     time.Time `json:"joined_at"`
	SessionToken string    `json:"-"` // Never expose in JSON
	UserID       *string   `json:"-"`
}

// ParticipantView is a participant as other people in the room see it.
// Vote is only filled once the room is revealed.
type ParticipantView struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	IsAdmin     bool      `json:"is_admin"`
	IsConnected bool      `json:"is_connected"`
	JoinedAt    time.Time `json:"joined_at"`
	HasVoted    bool      `json:"has_voted"`
	Vote        *string   `json:"vote,omitempty"`
}

// MeView is the caller's own seat, including a vote that is still hidden
// from everyone else.
type MeView struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	IsAdmin bool    `json:"is_admin"`
	Vote    *string `json:"vote,omitempty"`
}

type RoomView struct {
	Room         Room              `json:"room"`
	Scale        scales.Scale      `json:"scale"`
	Participants []ParticipantView `json:"participants"`
	Votes        map[string]string `json:"votes"`
	VoteCount    int               `json:"vote_count"`
	Me           *MeView           `json:"me,omitempty"`
}

// Results types

type VoteGroup struct {
	Point string `json:"point"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

type Results struct {
	RoomID     string      `json:"room_id"`
	ScaleType  string      `json:"scale_type"`
	ChartType  string      `json:"chart_type"`
	VoteCount  int         `json:"vote_count"`
	Average    float64     `json:"average"`
	HasAverage bool        `json:"has_average"`
	Consensus  bool        `json:"consensus"`
	Groups     []VoteGroup `json:"groups"`
}

// Realtime event types

const (
	EventRoom    = "room"
	EventDeleted = "deleted"
)

type Event struct {
	Type string    `json:"type"`
	Room *RoomView `json:"room,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
