package match

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MoveOutcome is the oracle's verdict for a legal move. It describes the
// resulting position without committing anything to the session; the caller
// decides commitment after consulting the clock.
type MoveOutcome struct {
	UCI      string
	SAN      string
	FEN      string
	NextTurn Color
	GameOver bool
	Winner   Color // set for decisive outcomes, empty on draw
	Draw     bool
}

// ApplyMove is the gatekeeper between an inbound move request and the rules
// library. Preconditions short-circuit in order: session active, submitter a
// participant, submitter's turn per the server-held position, move legal.
// Turn is derived from server state only — any position the client claims is
// ignored.
func ApplyMove(s *Session, submitterID, moveStr string) (*MoveOutcome, error) {
	if s.Status != StatusActive {
		return nil, ErrSessionNotActive
	}
	color, ok := s.ColorOf(submitterID)
	if !ok {
		return nil, ErrNotAParticipant
	}
	if color != s.Turn {
		return nil, ErrOutOfTurn
	}

	game := reconstruct(s.MovesUCI)
	if game == nil {
		return nil, errf("corrupt move log")
	}
	pos := game.Position()

	raw := strings.TrimSpace(moveStr)
	if raw == "" {
		return nil, ErrIllegalMove
	}

	// UCI first, SAN as a fallback for human input.
	var outUCI, outSAN string
	uci := strings.ToLower(raw)
	if mv, derr := (nchess.UCINotation{}).Decode(pos, uci); derr == nil {
		game.Move(mv, nil)
		outUCI = uci
		outSAN = nchess.AlgebraicNotation{}.Encode(pos, mv)
	} else {
		if err := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return nil, ErrIllegalMove
		}
		last := lastMove(game)
		if last == nil {
			return nil, ErrIllegalMove
		}
		outUCI = last.String()
		outSAN = nchess.AlgebraicNotation{}.Encode(pos, last)
	}

	out := &MoveOutcome{
		UCI:      outUCI,
		SAN:      outSAN,
		FEN:      game.FEN(),
		NextTurn: colorFrom(game.Position().Turn()),
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		out.GameOver, out.Winner = true, White
	case nchess.BlackWon:
		out.GameOver, out.Winner = true, Black
	case nchess.Draw:
		out.GameOver, out.Draw = true, true
	}
	return out, nil
}

// reconstruct replays the stored UCI log from the start position. The FEN on
// the session is presentation state; replaying it here could double-apply
// moves.
func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
