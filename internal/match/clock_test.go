package match

import (
	"testing"
	"time"
)

func timedSession(base, inc int, turn Color) *Session {
	return &Session{
		ID:        "s1",
		HostID:    "h1",
		GuestID:   "g1",
		HostColor: White,
		Status:    StatusActive,
		FEN:       StartFEN,
		Turn:      turn,
		Clock: Clock{
			Mode:             ClockArmed,
			BaseSeconds:      base,
			IncrementSeconds: inc,
			WhiteRemaining:   base,
			BlackRemaining:   base,
		},
	}
}

func untimedSession(turn Color) *Session {
	s := timedSession(0, 0, turn)
	s.Clock = Clock{Mode: ClockNone}
	return s
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestUntimedSentinel(t *testing.T) {
	s := untimedSession(White)
	if got := CurrentRemaining(s, White, t0); got != NoClock {
		t.Fatalf("expected NoClock sentinel, got %d", got)
	}
	// Years of elapsed wall time change nothing.
	later := t0.Add(1000 * 24 * time.Hour)
	if IsExpired(s, White, later) || IsExpired(s, Black, later) {
		t.Fatalf("untimed session must never expire")
	}
	res := SettleMove(s, White, later)
	if res.TimedOut || res.Charged != 0 {
		t.Fatalf("settle on untimed session must be a no-op: %+v", res)
	}
	if s.Clock.Mode != ClockNone {
		t.Fatalf("untimed clock mutated: %+v", s.Clock)
	}
	if BuildClockSnapshot(s, later) != nil {
		t.Fatalf("untimed snapshot must be nil")
	}
}

func TestFirstMoveStartsClockWithoutCharge(t *testing.T) {
	// The opening move costs nothing; it only starts the clock.
	s := timedSession(300, 0, White)
	res := SettleMove(s, White, t0)
	if res.TimedOut {
		t.Fatalf("first settle must not time out")
	}
	if s.Clock.WhiteRemaining != 300 || s.Clock.BlackRemaining != 300 {
		t.Fatalf("first settle must not charge: w=%d b=%d", s.Clock.WhiteRemaining, s.Clock.BlackRemaining)
	}
	if s.Clock.Mode != ClockRunning || !s.Clock.LastMoveAt.Equal(t0) {
		t.Fatalf("clock did not start: mode=%s at=%v", s.Clock.Mode, s.Clock.LastMoveAt)
	}
}

func TestSettleChargesCeil(t *testing.T) {
	// Rounding law: 1.1s of deliberation costs 2 charged seconds.
	s := timedSession(100, 0, Black)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0

	res := SettleMove(s, Black, t0.Add(1100*time.Millisecond))
	if res.TimedOut {
		t.Fatalf("unexpected timeout")
	}
	if res.Charged != 2 {
		t.Fatalf("expected 2s charged, got %d", res.Charged)
	}
	if s.Clock.BlackRemaining != 98 {
		t.Fatalf("expected 98s remaining, got %d", s.Clock.BlackRemaining)
	}
}

func TestTimeoutPrecedesIncrement(t *testing.T) {
	// elapsed == remaining exactly is a timeout; the increment never rescues.
	s := timedSession(5, 3, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0

	res := SettleMove(s, White, t0.Add(5*time.Second))
	if !res.TimedOut {
		t.Fatalf("expected timeout at elapsed == remaining")
	}
	if s.Clock.WhiteRemaining != 0 {
		t.Fatalf("remaining must clamp to 0, got %d", s.Clock.WhiteRemaining)
	}
}

func TestIncrementApplied(t *testing.T) {
	// base=10s, inc=3s, 8s elapsed -> 10-8+3 = 5.
	s := timedSession(10, 3, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0

	res := SettleMove(s, White, t0.Add(8*time.Second))
	if res.TimedOut {
		t.Fatalf("unexpected timeout")
	}
	if s.Clock.WhiteRemaining != 5 {
		t.Fatalf("expected 5s remaining, got %d", s.Clock.WhiteRemaining)
	}
}

func TestTimeoutLeavesOpponentClockUntouched(t *testing.T) {
	// base=5s inc=3s, 10s elapse before the move arrives.
	s := timedSession(5, 3, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0

	res := SettleMove(s, White, t0.Add(10*time.Second))
	if !res.TimedOut {
		t.Fatalf("expected timeout")
	}
	if s.Clock.WhiteRemaining != 0 {
		t.Fatalf("expected clamp to 0, got %d", s.Clock.WhiteRemaining)
	}
	if s.Clock.BlackRemaining != 5 {
		t.Fatalf("opponent clock must be untouched, got %d", s.Clock.BlackRemaining)
	}
}

func TestWaitingPlayerFrozen(t *testing.T) {
	s := timedSession(60, 0, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0
	s.Clock.BlackRemaining = 42

	for _, dt := range []time.Duration{0, time.Second, time.Hour} {
		if got := CurrentRemaining(s, Black, t0.Add(dt)); got != 42 {
			t.Fatalf("waiting side must stay frozen at 42, got %d after %v", got, dt)
		}
		if IsExpired(s, Black, t0.Add(dt)) {
			t.Fatalf("waiting side can never expire")
		}
	}
}

func TestCurrentRemainingFloorsForDisplay(t *testing.T) {
	s := timedSession(100, 0, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0

	if got := CurrentRemaining(s, White, t0.Add(1900*time.Millisecond)); got != 99 {
		t.Fatalf("display remaining should floor elapsed: got %d", got)
	}
	if got := CurrentRemaining(s, White, t0.Add(500*time.Hour)); got != 0 {
		t.Fatalf("display remaining must clamp at 0, got %d", got)
	}
}

func TestIsExpiredOnlySideToMove(t *testing.T) {
	s := timedSession(5, 0, White)
	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0
	at := t0.Add(10 * time.Second)
	if !IsExpired(s, White, at) {
		t.Fatalf("side to move should be expired")
	}
	if IsExpired(s, Black, at) {
		t.Fatalf("waiting side must not be expired")
	}
}

func TestClockBeforeStartNeverExpires(t *testing.T) {
	s := timedSession(5, 0, White)
	if IsExpired(s, White, t0.Add(time.Hour)) {
		t.Fatalf("armed clock must not expire before the first move")
	}
	if got := CurrentRemaining(s, White, t0.Add(time.Hour)); got != 5 {
		t.Fatalf("armed clock shows stored value, got %d", got)
	}
}

func TestBuildClockSnapshot(t *testing.T) {
	s := timedSession(300, 2, White)
	snap := BuildClockSnapshot(s, t0)
	if snap == nil || snap.Mode != ClockArmed || snap.LastMoveAt != nil {
		t.Fatalf("armed snapshot wrong: %+v", snap)
	}

	s.Clock.Mode = ClockRunning
	s.Clock.LastMoveAt = t0
	snap = BuildClockSnapshot(s, t0.Add(4200*time.Millisecond))
	if snap.WhiteRemaining != 296 {
		t.Fatalf("running side should project elapsed: got %d", snap.WhiteRemaining)
	}
	if snap.BlackRemaining != 300 {
		t.Fatalf("waiting side should stay settled: got %d", snap.BlackRemaining)
	}
	if snap.LastMoveAt == nil || !snap.LastMoveAt.Equal(t0) {
		t.Fatalf("running snapshot must carry last move time")
	}
	if snap.Turn != White {
		t.Fatalf("snapshot turn mismatch: %s", snap.Turn)
	}
}
