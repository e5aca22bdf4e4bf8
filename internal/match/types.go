package match

import (
	"time"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Title returns the display form used in result strings.
func (c Color) Title() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// ColorChoice is the host's color preference at session creation.
type ColorChoice string

const (
	ChoiceWhite  ColorChoice = "white"
	ChoiceBlack  ColorChoice = "black"
	ChoiceRandom ColorChoice = "random"
)

// Status represents a session lifecycle state.
type Status string

const (
	StatusWaiting   Status = "WAITING_FOR_GUEST"
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED" // reserved for the disconnect-grace policy hook
	StatusEnded     Status = "ENDED"
	StatusAbandoned Status = "ABANDONED"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusAbandoned
}

// ClockMode distinguishes the three valid shapes of the timing sub-entity:
// no clock at all (training games), a configured clock that has not started,
// and a running clock. Field validity depends on the mode, never on nil
// combinations.
type ClockMode string

const (
	ClockNone    ClockMode = "none"
	ClockArmed   ClockMode = "armed"
	ClockRunning ClockMode = "running"
)

// Clock is the per-session timing sub-entity. WhiteRemaining/BlackRemaining
// hold the last settled value for each side; LastMoveAt is only meaningful
// in ClockRunning mode.
type Clock struct {
	Mode             ClockMode `json:"mode"`
	BaseSeconds      int       `json:"base_seconds,omitempty"`
	IncrementSeconds int       `json:"increment_seconds,omitempty"`
	WhiteRemaining   int       `json:"white_remaining,omitempty"`
	BlackRemaining   int       `json:"black_remaining,omitempty"`
	LastMoveAt       time.Time `json:"last_move_at,omitzero"`
}

func (c *Clock) remaining(color Color) int {
	if color == White {
		return c.WhiteRemaining
	}
	return c.BlackRemaining
}

func (c *Clock) setRemaining(color Color, secs int) {
	if color == White {
		c.WhiteRemaining = secs
	} else {
		c.BlackRemaining = secs
	}
}

// ClockConfig requests a timed game at session creation. Absent config means
// an untimed training session.
type ClockConfig struct {
	BaseSeconds      int `json:"base_seconds"`
	IncrementSeconds int `json:"increment_seconds"`
}

// Session is the canonical state of one match. All mutation goes through the
// registry's per-session boundary; everything handed out of the registry is
// a deep copy.
type Session struct {
	ID       string `json:"id"`
	RoomCode string `json:"room_code"`

	HostID    string `json:"host_id"`
	GuestID   string `json:"guest_id,omitempty"`
	HostColor Color  `json:"host_color"`

	HostConnected  bool `json:"host_connected"`
	GuestConnected bool `json:"guest_connected"`

	Status   Status   `json:"status"`
	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`
	Turn     Color    `json:"turn"`

	Clock Clock `json:"clock"`

	Result string `json:"result,omitempty"`
	Seq    uint64 `json:"seq"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// GuestColor is always the opposite of the host's color.
func (s *Session) GuestColor() Color { return s.HostColor.Opposite() }

// ColorOf resolves a participant's color. ok is false for non-participants.
func (s *Session) ColorOf(userID string) (Color, bool) {
	switch {
	case userID == "":
		return "", false
	case userID == s.HostID:
		return s.HostColor, true
	case s.GuestID != "" && userID == s.GuestID:
		return s.GuestColor(), true
	}
	return "", false
}

// PlayerID resolves the participant holding the given color, "" if unseated.
func (s *Session) PlayerID(color Color) string {
	if color == s.HostColor {
		return s.HostID
	}
	return s.GuestID
}

func (s *Session) IsParticipant(userID string) bool {
	_, ok := s.ColorOf(userID)
	return ok
}

// Clone returns a deep copy safe to hand outside the mutation boundary.
func (s *Session) Clone() *Session {
	cp := *s
	cp.MovesUCI = append([]string(nil), s.MovesUCI...)
	cp.MovesSAN = append([]string(nil), s.MovesSAN...)
	return &cp
}

// PlayerInfo is the roster entry carried in snapshots and roster broadcasts.
type PlayerInfo struct {
	UserID    string `json:"user_id"`
	Color     Color  `json:"color"`
	Host      bool   `json:"host"`
	Connected bool   `json:"connected"`
}

// ClockSnapshot is the only clock representation a client ever receives.
// A nil snapshot is the "no clock" sentinel for untimed sessions.
type ClockSnapshot struct {
	Mode             ClockMode  `json:"mode"`
	BaseSeconds      int        `json:"base_seconds"`
	IncrementSeconds int        `json:"increment_seconds"`
	WhiteRemaining   int        `json:"white_remaining"`
	BlackRemaining   int        `json:"black_remaining"`
	Turn             Color      `json:"turn"`
	LastMoveAt       *time.Time `json:"last_move_at,omitempty"`
}

// StateSnapshot is the complete client-renderable projection of a session.
// Every broadcast carries one so late joiners can render from a single
// message.
type StateSnapshot struct {
	SessionID string         `json:"session_id"`
	RoomCode  string         `json:"room_code"`
	Status    Status         `json:"status"`
	FEN       string         `json:"fen"`
	Turn      Color          `json:"turn"`
	MovesUCI  []string       `json:"moves_uci"`
	MovesSAN  []string       `json:"moves_san"`
	Players   []PlayerInfo   `json:"players"`
	Clock     *ClockSnapshot `json:"clock,omitempty"`
	Result    string         `json:"result,omitempty"`
	Seq       uint64         `json:"seq"`
}

// Snapshot projects the session for clients. Read-only and cheap so resync
// polling never disturbs game state.
func (s *Session) Snapshot(now time.Time) *StateSnapshot {
	players := []PlayerInfo{{UserID: s.HostID, Color: s.HostColor, Host: true, Connected: s.HostConnected}}
	if s.GuestID != "" {
		players = append(players, PlayerInfo{UserID: s.GuestID, Color: s.GuestColor(), Connected: s.GuestConnected})
	}
	return &StateSnapshot{
		SessionID: s.ID,
		RoomCode:  s.RoomCode,
		Status:    s.Status,
		FEN:       s.FEN,
		Turn:      s.Turn,
		MovesUCI:  append([]string(nil), s.MovesUCI...),
		MovesSAN:  append([]string(nil), s.MovesSAN...),
		Players:   players,
		Clock:     BuildClockSnapshot(s, now),
		Result:    s.Result,
		Seq:       s.Seq,
	}
}

// Broadcast payloads.

type MovePayload struct {
	UCI   string         `json:"uci"`
	SAN   string         `json:"san"`
	State *StateSnapshot `json:"state"`
}

type RosterPayload struct {
	Event   string         `json:"event"` // joined | disconnected | reconnected
	Players []PlayerInfo   `json:"players"`
	State   *StateSnapshot `json:"state"`
}

type GameOverPayload struct {
	Result string         `json:"result"`
	Winner Color          `json:"winner,omitempty"`
	Clock  *ClockSnapshot `json:"clock,omitempty"`
	State  *StateSnapshot `json:"state"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
