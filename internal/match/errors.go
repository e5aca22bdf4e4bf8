package match

// Rejections are ordinary values: reported to the offending caller only,
// never broadcast, never a panic.
var (
	ErrNotFound          = errf("session not found")
	ErrNotJoinable       = errf("session is not joinable")
	ErrAlreadyJoined     = errf("session already has a guest")
	ErrSelfJoin          = errf("cannot join your own session")
	ErrSessionNotActive  = errf("session is not active")
	ErrNotAParticipant   = errf("user is not a participant of this session")
	ErrOutOfTurn         = errf("not this player's turn")
	ErrIllegalMove       = errf("illegal move")
	ErrNoTimeout         = errf("no timeout to claim")
	ErrRoomCodeExhausted = errf("failed to allocate a room code")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// RejectionCode maps a rejection sentinel to the stable code clients switch
// on; "" for anything that is not a user-facing rejection.
func RejectionCode(err error) string {
	switch err {
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrNotJoinable:
		return "NOT_JOINABLE"
	case ErrAlreadyJoined:
		return "ALREADY_JOINED"
	case ErrSelfJoin:
		return "SELF_JOIN"
	case ErrSessionNotActive:
		return "SESSION_NOT_ACTIVE"
	case ErrNotAParticipant:
		return "NOT_A_PARTICIPANT"
	case ErrOutOfTurn:
		return "OUT_OF_TURN"
	case ErrIllegalMove:
		return "ILLEGAL_MOVE"
	case ErrNoTimeout:
		return "NO_TIMEOUT"
	}
	return ""
}
