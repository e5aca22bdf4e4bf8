package broadcast

import "time"

// Kind discriminates the messages a subscriber can receive.
type Kind string

const (
	KindGameState    Kind = "GAME_STATE"
	KindMove         Kind = "MOVE"
	KindPlayerJoined Kind = "PLAYER_JOINED"
	KindGameOver     Kind = "GAME_OVER"
	KindError        Kind = "ERROR"
)

// Message is the JSON envelope published to session topics. Seq is the
// per-session broadcast counter assigned under the session's mutation
// boundary; subscribers on one session never observe seq going backwards.
// Private messages (ERROR, snapshot resends) carry the session's current seq
// without advancing it.
type Message struct {
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// TopicSession is the session-wide fan-out channel.
func TopicSession(sessionID string) string {
	return "arena:session:" + sessionID + ":events"
}

// TopicParticipant is the private per-participant channel.
func TopicParticipant(sessionID, userID string) string {
	return "arena:session:" + sessionID + ":user:" + userID
}
