package match

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/broadcast"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
)

// Archiver persists terminal game records. Failures are logged and never
// block game flow. winner is empty for draws and host abandonment; the
// rendered result string on the session is display text only.
type Archiver interface {
	SaveResult(ctx context.Context, s *Session, method string, winner Color) error
}

// DisconnectPolicy decides whether a participant disconnecting from an
// ACTIVE game forfeits it. The default (nil) never forfeits: the opponent
// may wait for a reconnect indefinitely.
type DisconnectPolicy func(s *Session, leaver Color, now time.Time) bool

// Manager drives the match state machine. Every state change runs inside
// the registry's per-session mutation boundary; broadcasts are enqueued
// under that boundary (which fixes their order) and delivered outside it.
type Manager struct {
	reg    *Registry
	pub    broadcast.Publisher
	cat    *msgcat.Catalog
	arch   Archiver
	clock  clockwork.Clock
	policy DisconnectPolicy
}

type Option func(*Manager)

func WithArchiver(a Archiver) Option { return func(m *Manager) { m.arch = a } }

func WithDisconnectPolicy(p DisconnectPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

func WithClock(c clockwork.Clock) Option { return func(m *Manager) { m.clock = c } }

func NewManager(reg *Registry, pub broadcast.Publisher, cat *msgcat.Catalog, opts ...Option) *Manager {
	m := &Manager{reg: reg, pub: pub, cat: cat, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(m)
	}
	return m
}

type CreateResult struct {
	SessionID string
	RoomCode  string
	HostColor Color
}

// CreateSession opens a new session in WAITING_FOR_GUEST. A nil clock
// config means an untimed training game.
func (m *Manager) CreateSession(ctx context.Context, hostID string, choice ColorChoice, cfg *ClockConfig) (*CreateResult, error) {
	s, err := m.reg.Create(ctx, hostID, choice, cfg, m.clock.Now())
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("room_code", s.RoomCode),
		zap.String("host_id", s.HostID),
		zap.String("host_color", string(s.HostColor)),
		zap.String("clock_mode", string(s.Clock.Mode)),
	)
	return &CreateResult{SessionID: s.ID, RoomCode: s.RoomCode, HostColor: s.HostColor}, nil
}

type JoinResult struct {
	SessionID string
	Color     Color
	State     *StateSnapshot
}

// Join seats a guest by room code and activates the session. Duplicate
// attempts by an existing participant are idempotent reconnects; a
// different second guest is rejected.
func (m *Manager) Join(ctx context.Context, roomCode, userID string) (*JoinResult, error) {
	if userID == "" {
		return nil, ErrNotAParticipant
	}
	id, ok := m.reg.ResolveRoomCode(roomCode)
	if !ok {
		return nil, ErrNotFound
	}

	now := m.clock.Now()
	var color Color
	var joined bool
	s, err := m.reg.Mutate(ctx, id, func(s *Session) error {
		switch {
		case s.Status == StatusWaiting:
			if userID == s.HostID {
				return ErrSelfJoin
			}
			s.GuestID = userID
			s.GuestConnected = true
			s.Status = StatusActive
			s.UpdatedAt = now
			color = s.GuestColor()
			joined = true
			s.Seq++
			m.pub.Enqueue(broadcast.TopicSession(s.ID), m.envelope(s, broadcast.KindPlayerJoined, now,
				RosterPayload{Event: "joined", Players: s.Snapshot(now).Players, State: s.Snapshot(now)}))
			return nil
		case s.Status == StatusActive && s.IsParticipant(userID):
			// Duplicate join from a seated player: reconnect, not an error.
			color, _ = s.ColorOf(userID)
			m.markConnected(s, userID, now)
			return nil
		case s.Status == StatusActive:
			return ErrAlreadyJoined
		default:
			return ErrNotJoinable
		}
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_join",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
		zap.String("color", string(color)),
		zap.Bool("seated", joined),
	)
	return &JoinResult{SessionID: s.ID, Color: color, State: s.Snapshot(now)}, nil
}

type MoveResult struct {
	UCI      string
	SAN      string
	TimedOut bool
	Winner   Color
	Result   string // terminal result text, set when the game ended
	State    *StateSnapshot
}

// SubmitMove validates, settles the clock, and commits a move — or discards
// it when the mover's clock ran out while they deliberated. Rejections are
// reported privately to the submitter and never broadcast.
func (m *Manager) SubmitMove(ctx context.Context, sessionID, userID, move string) (*MoveResult, error) {
	now := m.clock.Now()
	res := &MoveResult{}
	var method string

	s, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		outcome, err := ApplyMove(s, userID, move)
		if err != nil {
			return err
		}

		// Clock settles before the move commits: a legal move played after
		// the mover's flag fell never lands on the board.
		mover := s.Turn
		settle := SettleMove(s, mover, now)
		s.UpdatedAt = now
		if settle.TimedOut {
			winner := mover.Opposite()
			result := m.cat.RenderOr("result.timeout", winnerData(winner), winner.Title()+" wins on time")
			m.endLocked(s, StatusEnded, result, winner, now)
			res.TimedOut, res.Winner, res.Result = true, winner, result
			method = "timeout"
			return nil
		}

		s.FEN = outcome.FEN
		s.MovesUCI = append(s.MovesUCI, outcome.UCI)
		s.MovesSAN = append(s.MovesSAN, outcome.SAN)
		s.Turn = outcome.NextTurn
		res.UCI, res.SAN = outcome.UCI, outcome.SAN

		s.Seq++
		m.pub.Enqueue(broadcast.TopicSession(s.ID), m.envelope(s, broadcast.KindMove, now,
			MovePayload{UCI: outcome.UCI, SAN: outcome.SAN, State: s.Snapshot(now)}))

		if outcome.GameOver {
			var winner Color
			var result string
			if outcome.Draw {
				result = m.cat.RenderOr("result.draw", nil, "draw")
				method = "draw"
			} else {
				winner = outcome.Winner
				result = m.cat.RenderOr("result.checkmate", winnerData(winner), winner.Title()+" wins by checkmate")
				method = "checkmate"
			}
			m.endLocked(s, StatusEnded, result, winner, now)
			res.Winner, res.Result = winner, result
		}
		return nil
	})
	if err != nil {
		m.rejectPrivately(sessionID, userID, err, now)
		return nil, err
	}

	obslog.L().Info("session_move",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
		zap.String("uci", res.UCI),
		zap.Bool("timed_out", res.TimedOut),
		zap.String("status", string(s.Status)),
	)
	res.State = s.Snapshot(now)
	if method != "" {
		m.archive(ctx, s, method, res.Winner)
	}
	return res, nil
}

type EndResult struct {
	Result string
	State  *StateSnapshot
}

// Resign ends an active game in the opponent's favor. Resigning an already
// finished game is a no-op returning the recorded result, so duplicate end
// signals racing with timeout detection stay harmless.
func (m *Manager) Resign(ctx context.Context, sessionID, userID string) (*EndResult, error) {
	now := m.clock.Now()
	res := &EndResult{}
	var method string
	var winner Color

	s, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		if s.Status.Terminal() {
			res.Result = s.Result
			return nil
		}
		if s.Status != StatusActive {
			return ErrSessionNotActive
		}
		color, ok := s.ColorOf(userID)
		if !ok {
			return ErrNotAParticipant
		}
		winner = color.Opposite()
		result := m.cat.RenderOr("result.resignation", winnerData(winner), winner.Title()+" wins by resignation")
		m.endLocked(s, StatusEnded, result, winner, now)
		res.Result = result
		method = "resignation"
		return nil
	})
	if err != nil {
		m.rejectPrivately(sessionID, userID, err, now)
		return nil, err
	}

	if method != "" {
		obslog.L().Info("session_resign",
			zap.String("session_id", s.ID),
			zap.String("user_id", userID),
			zap.String("result", res.Result),
		)
		m.archive(ctx, s, method, winner)
	}
	res.State = s.Snapshot(now)
	return res, nil
}

type ClaimResult struct {
	Ended  bool
	Result string
	Winner Color
	State  *StateSnapshot
}

// ClaimTimeout is the lazy timeout check: a client observing the side to
// move at zero asks the server to verify against its own clock. There is no
// background ticker; expiry is only ever computed here and in SubmitMove.
func (m *Manager) ClaimTimeout(ctx context.Context, sessionID, userID string) (*ClaimResult, error) {
	now := m.clock.Now()
	res := &ClaimResult{}
	var method string

	s, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		if s.Status.Terminal() {
			res.Ended, res.Result = true, s.Result
			return nil
		}
		if s.Status != StatusActive {
			return ErrSessionNotActive
		}
		if !s.IsParticipant(userID) {
			return ErrNotAParticipant
		}
		flagged := s.Turn
		if !IsExpired(s, flagged, now) {
			return ErrNoTimeout
		}
		s.Clock.setRemaining(flagged, 0)
		winner := flagged.Opposite()
		result := m.cat.RenderOr("result.timeout", winnerData(winner), winner.Title()+" wins on time")
		m.endLocked(s, StatusEnded, result, winner, now)
		res.Ended, res.Result, res.Winner = true, result, winner
		method = "timeout"
		return nil
	})
	if err != nil {
		m.rejectPrivately(sessionID, userID, err, now)
		return nil, err
	}

	if method != "" {
		obslog.L().Info("session_timeout_claim",
			zap.String("session_id", s.ID),
			zap.String("claimant", userID),
			zap.String("result", res.Result),
		)
		m.archive(ctx, s, method, res.Winner)
	}
	res.State = s.Snapshot(now)
	return res, nil
}

// Leave records a participant going away. Before the game starts the host
// leaving abandons the session; during an active game it is only a
// disconnect signal for the roster (plus whatever the disconnect policy
// decides) — never a termination by itself.
func (m *Manager) Leave(ctx context.Context, sessionID, userID string) (*StateSnapshot, error) {
	now := m.clock.Now()
	s, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		color, ok := s.ColorOf(userID)
		if !ok {
			return ErrNotAParticipant
		}
		switch {
		case s.Status.Terminal():
			return nil
		case s.Status == StatusWaiting && userID == s.HostID:
			result := m.cat.RenderOr("result.abandoned", nil, "game abandoned")
			m.endLocked(s, StatusAbandoned, result, "", now)
			return nil
		case s.Status == StatusActive:
			m.markDisconnected(s, userID, now)
			if m.policy != nil && m.policy(s, color, now) {
				winner := color.Opposite()
				result := m.cat.RenderOr("result.abandoned", nil, "game abandoned")
				m.endLocked(s, StatusEnded, result, winner, now)
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_leave",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
		zap.String("status", string(s.Status)),
	)
	return s.Snapshot(now), nil
}

// ForfeitDisconnected ends an active game against a participant who is
// still marked disconnected. Disconnect-grace policies call this after
// their grace period; it is a no-op if the player reconnected or the game
// already ended.
func (m *Manager) ForfeitDisconnected(ctx context.Context, sessionID, userID string) error {
	now := m.clock.Now()
	var method string
	var winner Color
	s, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		if s.Status != StatusActive {
			return nil
		}
		color, ok := s.ColorOf(userID)
		if !ok {
			return nil
		}
		connected := s.HostConnected
		if userID == s.GuestID {
			connected = s.GuestConnected
		}
		if connected {
			return nil
		}
		winner = color.Opposite()
		result := m.cat.RenderOr("result.abandoned", nil, "game abandoned")
		m.endLocked(s, StatusEnded, result, winner, now)
		method = "abandonment"
		return nil
	})
	if err != nil {
		return err
	}
	if method != "" {
		obslog.L().Info("session_forfeit",
			zap.String("session_id", s.ID),
			zap.String("user_id", userID),
		)
		m.archive(ctx, s, method, winner)
	}
	return nil
}

// Reconnect flips a participant back to connected after their subscription
// is re-established. Safe to call for spectators and finished games.
func (m *Manager) Reconnect(ctx context.Context, sessionID, userID string) error {
	now := m.clock.Now()
	_, err := m.reg.Mutate(ctx, sessionID, func(s *Session) error {
		if !s.IsParticipant(userID) || s.Status.Terminal() {
			return nil
		}
		m.markConnected(s, userID, now)
		return nil
	})
	return err
}

// Snapshot is the resync read: full renderable state, no side effects.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (*StateSnapshot, error) {
	s, err := m.reg.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(m.clock.Now()), nil
}

// endLocked flips a session into a terminal status and enqueues the single
// GAME_OVER broadcast, atomically with respect to other movers: it only runs
// inside the session's mutation boundary.
func (m *Manager) endLocked(s *Session, terminal Status, result string, winner Color, now time.Time) {
	if s.Status.Terminal() {
		return
	}
	s.Status = terminal
	s.Result = result
	s.EndedAt = now
	s.UpdatedAt = now
	s.Seq++
	m.pub.Enqueue(broadcast.TopicSession(s.ID), m.envelope(s, broadcast.KindGameOver, now,
		GameOverPayload{Result: result, Winner: winner, Clock: BuildClockSnapshot(s, now), State: s.Snapshot(now)}))
}

func (m *Manager) markConnected(s *Session, userID string, now time.Time) {
	changed := false
	if userID == s.HostID && !s.HostConnected {
		s.HostConnected, changed = true, true
	}
	if userID == s.GuestID && !s.GuestConnected {
		s.GuestConnected, changed = true, true
	}
	if !changed {
		return
	}
	s.UpdatedAt = now
	s.Seq++
	m.pub.Enqueue(broadcast.TopicSession(s.ID), m.envelope(s, broadcast.KindPlayerJoined, now,
		RosterPayload{Event: "reconnected", Players: s.Snapshot(now).Players, State: s.Snapshot(now)}))
}

func (m *Manager) markDisconnected(s *Session, userID string, now time.Time) {
	changed := false
	if userID == s.HostID && s.HostConnected {
		s.HostConnected, changed = false, true
	}
	if userID == s.GuestID && s.GuestConnected {
		s.GuestConnected, changed = false, true
	}
	if !changed {
		return
	}
	s.UpdatedAt = now
	s.Seq++
	m.pub.Enqueue(broadcast.TopicSession(s.ID), m.envelope(s, broadcast.KindPlayerJoined, now,
		RosterPayload{Event: "disconnected", Players: s.Snapshot(now).Players, State: s.Snapshot(now)}))
}

func (m *Manager) envelope(s *Session, kind broadcast.Kind, now time.Time, payload any) *broadcast.Message {
	return &broadcast.Message{Kind: kind, SessionID: s.ID, Seq: s.Seq, At: now, Payload: payload}
}

// rejectPrivately tells the offending submitter why, on their private topic
// only. Other participants never learn of rejected attempts.
func (m *Manager) rejectPrivately(sessionID, userID string, err error, now time.Time) {
	code := RejectionCode(err)
	if code == "" || userID == "" {
		return
	}
	text := m.cat.RenderOr("reject."+strings.ToLower(code), nil, err.Error())
	m.pub.Enqueue(broadcast.TopicParticipant(sessionID, userID), &broadcast.Message{
		Kind:      broadcast.KindError,
		SessionID: sessionID,
		At:        now,
		Payload:   ErrorPayload{Code: code, Message: text},
	})
}

func (m *Manager) archive(ctx context.Context, s *Session, method string, winner Color) {
	if m.arch == nil {
		return
	}
	if err := m.arch.SaveResult(ctx, s, method, winner); err != nil {
		obslog.L().Error("archive_error",
			zap.String("session_id", s.ID),
			zap.String("method", method),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("archive_saved", zap.String("session_id", s.ID), zap.String("method", method))
}

// RejectionText renders the user-facing explanation for a rejection.
func (m *Manager) RejectionText(err error) string {
	code := RejectionCode(err)
	if code == "" {
		return err.Error()
	}
	return m.cat.RenderOr("reject."+strings.ToLower(code), nil, err.Error())
}

func winnerData(winner Color) map[string]any {
	return map[string]any{"Winner": winner.Title()}
}
