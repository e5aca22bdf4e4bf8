package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-arena/internal/match"
)

// Repository persists terminal game records to Postgres. It is strictly an
// archive: live session state never reads from it.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a final game record. method is the termination path:
// checkmate, draw, resignation, timeout, abandonment. winner is empty for
// draws and abandonment; the session's rendered result string is display
// text and never parsed here.
func (r *Repository) SaveResult(ctx context.Context, s *match.Session, method string, winner match.Color) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}

	result := resultToken(winner, method)
	pgn := buildPGN(s, mapResultToPGN(result), method)

	movesUCIRaw, _ := json.Marshal(s.MovesUCI)
	movesSANRaw, _ := json.Marshal(s.MovesSAN)
	duration := s.UpdatedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
	    session_id, room_code, white_id, black_id,
	    time_control, result, result_method,
	    moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    room_code=EXCLUDED.room_code,
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    time_control=EXCLUDED.time_control,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.RoomCode,
		s.PlayerID(match.White), s.PlayerID(match.Black),
		timeControl(s), result, strings.TrimSpace(method),
		string(movesUCIRaw), string(movesSANRaw), pgn,
		s.CreatedAt, s.EndedAt, duration,
	)
	return err
}

// resultToken is the stored result column: white, black, draw, or "" when
// the game ended without a decision (host abandonment).
func resultToken(winner match.Color, method string) string {
	switch winner {
	case match.White:
		return "white"
	case match.Black:
		return "black"
	}
	if strings.EqualFold(strings.TrimSpace(method), "draw") {
		return "draw"
	}
	return ""
}

func timeControl(s *match.Session) string {
	if s.Clock.Mode == match.ClockNone {
		return "-"
	}
	return fmt.Sprintf("%d+%d", s.Clock.BaseSeconds, s.Clock.IncrementSeconds)
}

func mapResultToPGN(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(s *match.Session, pgnResult, method string) string {
	var b strings.Builder
	date := s.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Cheese Arena\"]\n")
	b.WriteString("[Site \"arena\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(s.PlayerID(match.White))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(s.PlayerID(match.Black))))
	if tc := timeControl(s); tc != "-" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", tc))
	}
	if strings.TrimSpace(method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(s.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(s.MovesSAN[i])))
		if i+1 < len(s.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(s.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	if pgnResult != "" {
		b.WriteString(pgnResult)
	}
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
