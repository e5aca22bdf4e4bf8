package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-arena/internal/broadcast"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/obslog"
)

// Hub bridges Redis pub/sub topics onto websocket connections. It is purely
// a delivery leg: all game state is computed upstream and arrives here as
// opaque, already-ordered JSON envelopes.
type Hub struct {
	rdb *redis.Client
	mgr *match.Manager
}

func NewHub(rdb *redis.Client, mgr *match.Manager) *Hub {
	return &Hub{rdb: rdb, mgr: mgr}
}

func (h *Hub) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.handleWS)
}

// handleWS subscribes the connection to the session topic (plus the user's
// private topic) and forwards messages until the peer goes away. The private
// GAME_STATE snapshot is sent only after the Redis subscription is
// confirmed, so a move broadcast can never slip between "joined" and
// "subscribed".
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if sessionID == "" {
		http.Error(w, "session query parameter required", http.StatusBadRequest)
		return
	}

	snap, err := h.mgr.Snapshot(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	participant := userID != "" && isParticipant(snap, userID)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "closed")

	// No client->server traffic flows over this socket; CloseRead gives us a
	// context that cancels when the peer disconnects.
	ctx := c.CloseRead(r.Context())

	topics := []string{broadcast.TopicSession(sessionID)}
	if participant {
		topics = append(topics, broadcast.TopicParticipant(sessionID, userID))
	}
	sub := h.rdb.Subscribe(ctx, topics...)
	defer sub.Close()
	for range topics {
		// One confirmation per topic; the subscription is durable after this.
		if _, err := sub.Receive(ctx); err != nil {
			obslog.L().Warn("ws_subscribe_error", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
	}
	ch := sub.Channel()

	if participant {
		if err := h.mgr.Reconnect(ctx, sessionID, userID); err != nil {
			obslog.L().Warn("ws_reconnect_error", zap.String("session_id", sessionID), zap.String("user_id", userID), zap.Error(err))
		}
		defer func() {
			if _, err := h.mgr.Leave(context.Background(), sessionID, userID); err != nil {
				obslog.L().Warn("ws_leave_error", zap.String("session_id", sessionID), zap.String("user_id", userID), zap.Error(err))
			}
		}()
	}

	// Fresh snapshot after subscribing: anything that happened in between is
	// already reflected here, and later broadcasts carry a higher seq.
	if err := h.sendSnapshot(ctx, c, sessionID); err != nil {
		return
	}

	obslog.L().Info("ws_attach",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Bool("participant", participant),
	)

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "bye")
			return
		case m, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			if err := c.Write(ctx, websocket.MessageText, []byte(m.Payload)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *websocket.Conn, sessionID string) error {
	snap, err := h.mgr.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	msg := broadcast.Message{
		Kind:      broadcast.KindGameState,
		SessionID: sessionID,
		Seq:       snap.Seq,
		At:        time.Now(),
		Payload:   snap,
	}
	return wsjson.Write(ctx, c, msg)
}

func isParticipant(snap *match.StateSnapshot, userID string) bool {
	for _, p := range snap.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
