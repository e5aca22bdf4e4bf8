package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/match"
)

func TestResultToken(t *testing.T) {
	cases := []struct {
		winner match.Color
		method string
		want   string
	}{
		{match.White, "checkmate", "white"},
		{match.Black, "timeout", "black"},
		{"", "draw", "draw"},
		{"", "abandonment", ""},
	}
	for _, tc := range cases {
		if got := resultToken(tc.winner, tc.method); got != tc.want {
			t.Fatalf("resultToken(%q, %q) = %q, want %q", tc.winner, tc.method, got, tc.want)
		}
	}
}

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{
		"white": "1-0",
		"black": "0-1",
		"draw":  "1/2-1/2",
		"":      "*",
	}
	for token, want := range cases {
		if got := mapResultToPGN(token); got != want {
			t.Fatalf("mapResultToPGN(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestBuildPGN(t *testing.T) {
	ended := time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC)
	s := &match.Session{
		ID:        "s1",
		HostID:    `ha"cker`,
		GuestID:   "g1",
		HostColor: match.White,
		MovesSAN:  []string{"f3", "e5", "g4", "Qh4#"},
		Clock:     match.Clock{Mode: match.ClockRunning, BaseSeconds: 300, IncrementSeconds: 2},
		EndedAt:   ended,
	}

	pgn := buildPGN(s, "0-1", "checkmate")
	for _, want := range []string{
		"[Date \"2025.07.04\"]",
		"[White \"ha'cker\"]", // quotes sanitized out of tag values
		"[Black \"g1\"]",
		"[TimeControl \"300+2\"]",
		"[Termination \"checkmate\"]",
		"[Result \"0-1\"]",
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
}

func TestBuildPGNUntimedOmitsTimeControl(t *testing.T) {
	s := &match.Session{
		ID:        "s1",
		HostID:    "h1",
		GuestID:   "g1",
		HostColor: match.White,
		MovesSAN:  []string{"e4"},
		Clock:     match.Clock{Mode: match.ClockNone},
		EndedAt:   time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC),
	}
	if pgn := buildPGN(s, "*", ""); strings.Contains(pgn, "TimeControl") {
		t.Fatalf("untimed pgn should omit TimeControl:\n%s", pgn)
	}
}
