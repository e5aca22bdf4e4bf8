package matchdto

// ClockConfig requests a timed game; omit it for an untimed session.
type ClockConfig struct {
	BaseSeconds      int `json:"base_seconds"`
	IncrementSeconds int `json:"increment_seconds"`
}

type CreateSessionRequest struct {
	HostID string       `json:"host_id"`
	Color  string       `json:"color,omitempty"` // white | black | random
	Clock  *ClockConfig `json:"clock,omitempty"`
}

type JoinRequest struct {
	RoomCode string `json:"room_code"`
	GuestID  string `json:"guest_id"`
}

type MoveRequest struct {
	UserID string `json:"user_id"`
	Move   string `json:"move"` // UCI preferred, SAN accepted
}

type UserRequest struct {
	UserID string `json:"user_id"`
}
