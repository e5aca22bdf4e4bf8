package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/pkg/matchdto"
)

// Server exposes the match manager over a JSON API. Handlers are thin: they
// parse, delegate, and translate rejections; all game semantics live behind
// the manager's mutation boundary.
type Server struct {
	mgr *match.Manager
}

func NewServer(mgr *match.Manager) *Server {
	return &Server{mgr: mgr}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("POST /api/sessions/join", s.handleJoin)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSnapshot)
	mux.HandleFunc("POST /api/sessions/{id}/moves", s.handleMove)
	mux.HandleFunc("POST /api/sessions/{id}/resign", s.handleResign)
	mux.HandleFunc("POST /api/sessions/{id}/claim-timeout", s.handleClaimTimeout)
	mux.HandleFunc("POST /api/sessions/{id}/leave", s.handleLeave)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req matchdto.CreateSessionRequest
	if !decode(w, r, &req) {
		return
	}
	choice := match.ColorChoice(req.Color)
	if choice == "" {
		choice = match.ChoiceRandom
	}
	var cfg *match.ClockConfig
	if req.Clock != nil {
		cfg = &match.ClockConfig{BaseSeconds: req.Clock.BaseSeconds, IncrementSeconds: req.Clock.IncrementSeconds}
	}
	res, err := s.mgr.CreateSession(r.Context(), req.HostID, choice, cfg)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, matchdto.CreateSessionResponse{
		SessionID: res.SessionID,
		RoomCode:  res.RoomCode,
		HostColor: string(res.HostColor),
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req matchdto.JoinRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.mgr.Join(r.Context(), req.RoomCode, req.GuestID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchdto.JoinResponse{
		SessionID: res.SessionID,
		Color:     string(res.Color),
		State:     toSessionState(res.State),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.mgr.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(snap))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req matchdto.MoveRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.mgr.SubmitMove(r.Context(), r.PathValue("id"), req.UserID, req.Move)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchdto.MoveResponse{
		Accepted: !res.TimedOut,
		UCI:      res.UCI,
		SAN:      res.SAN,
		TimedOut: res.TimedOut,
		Winner:   string(res.Winner),
		Result:   res.Result,
		State:    toSessionState(res.State),
	})
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	var req matchdto.UserRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.mgr.Resign(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchdto.EndResponse{Result: res.Result, State: toSessionState(res.State)})
}

func (s *Server) handleClaimTimeout(w http.ResponseWriter, r *http.Request) {
	var req matchdto.UserRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.mgr.ClaimTimeout(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchdto.ClaimResponse{
		Ended:  res.Ended,
		Result: res.Result,
		Winner: string(res.Winner),
		State:  toSessionState(res.State),
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req matchdto.UserRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.mgr.Leave(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(snap))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, matchdto.ErrorResponse{Code: "BAD_REQUEST", Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	code := match.RejectionCode(err)
	if code == "" {
		obslog.L().Error("api_internal_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, matchdto.ErrorResponse{Code: "INTERNAL", Error: "internal error"})
		return
	}
	writeJSON(w, statusFor(err), matchdto.ErrorResponse{Code: code, Error: s.mgr.RejectionText(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrAlreadyJoined), errors.Is(err, match.ErrNotJoinable), errors.Is(err, match.ErrSelfJoin):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toSessionState(snap *match.StateSnapshot) *matchdto.SessionState {
	if snap == nil {
		return nil
	}
	out := &matchdto.SessionState{
		SessionID: snap.SessionID,
		RoomCode:  snap.RoomCode,
		Status:    string(snap.Status),
		FEN:       snap.FEN,
		Turn:      string(snap.Turn),
		MovesUCI:  snap.MovesUCI,
		MovesSAN:  snap.MovesSAN,
		Result:    snap.Result,
		Seq:       snap.Seq,
	}
	for _, p := range snap.Players {
		out.Players = append(out.Players, matchdto.PlayerState{
			UserID:    p.UserID,
			Color:     string(p.Color),
			Host:      p.Host,
			Connected: p.Connected,
		})
	}
	if c := snap.Clock; c != nil {
		out.Clock = &matchdto.ClockState{
			Mode:             string(c.Mode),
			BaseSeconds:      c.BaseSeconds,
			IncrementSeconds: c.IncrementSeconds,
			WhiteRemaining:   c.WhiteRemaining,
			BlackRemaining:   c.BlackRemaining,
			Turn:             string(c.Turn),
			LastMoveAt:       c.LastMoveAt,
		}
	}
	return out
}
