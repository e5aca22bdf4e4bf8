package match

import (
	"errors"
	"testing"
)

func commit(s *Session, out *MoveOutcome) {
	s.FEN = out.FEN
	s.MovesUCI = append(s.MovesUCI, out.UCI)
	s.MovesSAN = append(s.MovesSAN, out.SAN)
	s.Turn = out.NextTurn
}

func TestApplyMoveLegalUCI(t *testing.T) {
	s := untimedSession(White)
	out, err := ApplyMove(s, "h1", "e2e4")
	if err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
	if out.UCI != "e2e4" || out.SAN != "e4" {
		t.Fatalf("notation mismatch: uci=%q san=%q", out.UCI, out.SAN)
	}
	if out.NextTurn != Black {
		t.Fatalf("turn should pass to black, got %s", out.NextTurn)
	}
	if out.FEN == StartFEN || out.FEN == "" {
		t.Fatalf("position did not advance: %q", out.FEN)
	}
	if out.GameOver {
		t.Fatalf("opening move cannot end the game")
	}
	// The oracle never mutates the session; commitment is the caller's call.
	if len(s.MovesUCI) != 0 || s.FEN != StartFEN || s.Turn != White {
		t.Fatalf("session mutated by validation: %+v", s)
	}
}

func TestApplyMoveSANFallback(t *testing.T) {
	s := untimedSession(White)
	out, err := ApplyMove(s, "h1", "Nf3")
	if err != nil {
		t.Fatalf("SAN move rejected: %v", err)
	}
	if out.UCI != "g1f3" || out.SAN != "Nf3" {
		t.Fatalf("notation mismatch: uci=%q san=%q", out.UCI, out.SAN)
	}
}

func TestApplyMoveIllegal(t *testing.T) {
	s := untimedSession(White)
	for _, mv := range []string{"e2e5", "d8h4", "zzzz", "", "   "} {
		if _, err := ApplyMove(s, "h1", mv); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("move %q: expected ErrIllegalMove, got %v", mv, err)
		}
	}
}

func TestApplyMovePreconditionOrder(t *testing.T) {
	s := untimedSession(White)

	s.Status = StatusWaiting
	if _, err := ApplyMove(s, "h1", "e2e4"); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}

	s.Status = StatusActive
	if _, err := ApplyMove(s, "spectator", "e2e4"); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}

	// Guest is black and it is white's turn; even an illegal string must be
	// reported as out-of-turn first.
	if _, err := ApplyMove(s, "g1", "zzzz"); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn, got %v", err)
	}
}

func TestApplyMoveReplaysServerLog(t *testing.T) {
	s := untimedSession(White)
	out, err := ApplyMove(s, "h1", "e2e4")
	if err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	commit(s, out)

	// e7e5 is legal only against the server-held position after e4.
	out, err = ApplyMove(s, "g1", "e7e5")
	if err != nil {
		t.Fatalf("e7e5: %v", err)
	}
	if out.SAN != "e5" || out.NextTurn != White {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestApplyMoveCheckmate(t *testing.T) {
	// Fool's mate: 1. f3 e5 2. g4 Qh4#
	s := untimedSession(White)
	seq := []struct {
		user, mv string
	}{
		{"h1", "f2f3"},
		{"g1", "e7e5"},
		{"h1", "g2g4"},
	}
	for _, step := range seq {
		out, err := ApplyMove(s, step.user, step.mv)
		if err != nil {
			t.Fatalf("%s: %v", step.mv, err)
		}
		commit(s, out)
	}

	out, err := ApplyMove(s, "g1", "d8h4")
	if err != nil {
		t.Fatalf("mating move rejected: %v", err)
	}
	if !out.GameOver || out.Draw {
		t.Fatalf("expected decisive game over, got %+v", out)
	}
	if out.Winner != Black {
		t.Fatalf("expected black winner, got %s", out.Winner)
	}
	if out.SAN != "Qh4#" {
		t.Fatalf("expected Qh4#, got %q", out.SAN)
	}
}
