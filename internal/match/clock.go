package match

import "time"

// Clock engine. Every function is pure over the session's clock fields and
// an explicit now, so concurrent reads are safe and tests never touch wall
// time. Untimed sessions short-circuit first in every entry point.

// NoClock is the sentinel returned by CurrentRemaining for untimed sessions.
const NoClock = -1

// CurrentRemaining projects a side's remaining seconds at now.
//
// The waiting side's clock is frozen at its last settled value; only the
// side to move burns time, and only once the clock is running. Display
// rounding is floor so a client never sees more time than is really left
// charged away.
func CurrentRemaining(s *Session, color Color, now time.Time) int {
	c := s.Clock
	if c.Mode == ClockNone {
		return NoClock
	}
	stored := c.remaining(color)
	if c.Mode != ClockRunning || color != s.Turn {
		return stored
	}
	elapsed := int(now.Sub(c.LastMoveAt).Milliseconds() / 1000)
	if elapsed <= 0 {
		return stored
	}
	if elapsed >= stored {
		return 0
	}
	return stored - elapsed
}

// IsExpired reports whether a side has run out of time. Only the side to
// move can expire: the waiting side's stored value never decreases between
// settles.
func IsExpired(s *Session, color Color, now time.Time) bool {
	if s.Clock.Mode == ClockNone {
		return false
	}
	if color != s.Turn {
		return false
	}
	return CurrentRemaining(s, color, now) <= 0
}

// Settle is the outcome of charging a completed move to the mover's clock.
type Settle struct {
	TimedOut bool
	Charged  int // seconds deducted; 0 for the opening move
}

// SettleMove charges elapsed thinking time to the mover, invoked exactly
// once per accepted move and before the move is committed.
//
// The first move of the game starts the clock without charging anything:
// the clock regulates the game, not the pre-game wait. Charging rounds up
// (a 1.1s move costs 2s) so sub-second moves are never free. The timeout
// check runs before the increment is applied — increment rewards finishing
// a move in time, it never rescues a player who already exceeded their
// allotment — and elapsed == remaining is a timeout: ties go to the clock.
// On timeout the caller must discard the move, not commit it.
func SettleMove(s *Session, mover Color, now time.Time) Settle {
	c := &s.Clock
	switch c.Mode {
	case ClockNone:
		return Settle{}
	case ClockArmed:
		c.Mode = ClockRunning
		c.LastMoveAt = now
		return Settle{}
	}

	elapsed := ceilSeconds(now.Sub(c.LastMoveAt))
	rem := c.remaining(mover)
	if elapsed >= rem {
		c.setRemaining(mover, 0)
		c.LastMoveAt = now
		return Settle{TimedOut: true, Charged: rem}
	}
	c.setRemaining(mover, rem-elapsed+c.IncrementSeconds)
	c.LastMoveAt = now
	return Settle{Charged: elapsed}
}

// BuildClockSnapshot assembles the externally visible clock state. Returns
// nil for untimed sessions; clients treat nil as "no clock". Side-effect
// free so resync polling can call it freely.
func BuildClockSnapshot(s *Session, now time.Time) *ClockSnapshot {
	c := s.Clock
	if c.Mode == ClockNone {
		return nil
	}
	snap := &ClockSnapshot{
		Mode:             c.Mode,
		BaseSeconds:      c.BaseSeconds,
		IncrementSeconds: c.IncrementSeconds,
		WhiteRemaining:   CurrentRemaining(s, White, now),
		BlackRemaining:   CurrentRemaining(s, Black, now),
		Turn:             s.Turn,
	}
	if c.Mode == ClockRunning {
		at := c.LastMoveAt
		snap.LastMoveAt = &at
	}
	return snap
}

func ceilSeconds(d time.Duration) int {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}
