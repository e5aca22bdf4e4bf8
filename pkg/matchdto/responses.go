package matchdto

import "time"

type PlayerState struct {
	UserID    string `json:"user_id"`
	Color     string `json:"color"`
	Host      bool   `json:"host"`
	Connected bool   `json:"connected"`
}

// ClockState mirrors the server clock snapshot; null means no clock.
type ClockState struct {
	Mode             string     `json:"mode"`
	BaseSeconds      int        `json:"base_seconds"`
	IncrementSeconds int        `json:"increment_seconds"`
	WhiteRemaining   int        `json:"white_remaining"`
	BlackRemaining   int        `json:"black_remaining"`
	Turn             string     `json:"turn"`
	LastMoveAt       *time.Time `json:"last_move_at,omitempty"`
}

// SessionState is the full renderable snapshot returned on join and resync.
type SessionState struct {
	SessionID string        `json:"session_id"`
	RoomCode  string        `json:"room_code"`
	Status    string        `json:"status"`
	FEN       string        `json:"fen"`
	Turn      string        `json:"turn"`
	MovesUCI  []string      `json:"moves_uci"`
	MovesSAN  []string      `json:"moves_san"`
	Players   []PlayerState `json:"players"`
	Clock     *ClockState   `json:"clock,omitempty"`
	Result    string        `json:"result,omitempty"`
	Seq       uint64        `json:"seq"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	RoomCode  string `json:"room_code"`
	HostColor string `json:"host_color"`
}

type JoinResponse struct {
	SessionID string        `json:"session_id"`
	Color     string        `json:"color"`
	State     *SessionState `json:"state"`
}

type MoveResponse struct {
	Accepted bool          `json:"accepted"`
	UCI      string        `json:"uci,omitempty"`
	SAN      string        `json:"san,omitempty"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Winner   string        `json:"winner,omitempty"`
	Result   string        `json:"result,omitempty"`
	State    *SessionState `json:"state,omitempty"`
}

type EndResponse struct {
	Result string        `json:"result"`
	State  *SessionState `json:"state,omitempty"`
}

type ClaimResponse struct {
	Ended  bool          `json:"ended"`
	Result string        `json:"result,omitempty"`
	Winner string        `json:"winner,omitempty"`
	State  *SessionState `json:"state,omitempty"`
}

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
