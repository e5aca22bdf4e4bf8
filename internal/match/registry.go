package match

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
)

// Registry owns the live session map. A single session is the unit of mutual
// exclusion: every state-changing operation runs under that session's own
// lock via Mutate, and sessions never block each other. The registry hands
// out deep copies only.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*entry
	byCode map[string]string // room code -> session id, released when the session turns terminal

	store *Store // optional write-through persistence
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

func NewRegistry(store *Store) *Registry {
	return &Registry{
		byID:   make(map[string]*entry),
		byCode: make(map[string]string),
		store:  store,
	}
}

// Create allocates a fresh session in WAITING_FOR_GUEST with a room code
// unique among currently joinable sessions.
func (r *Registry) Create(ctx context.Context, hostID string, choice ColorChoice, cfg *ClockConfig, now time.Time) (*Session, error) {
	if hostID == "" {
		return nil, errf("host id required")
	}

	hostColor := pickColor(choice)
	s := &Session{
		ID:            uuid.NewString(),
		HostID:        hostID,
		HostColor:     hostColor,
		HostConnected: true,
		Status:        StatusWaiting,
		FEN:           StartFEN,
		MovesUCI:      []string{},
		MovesSAN:      []string{},
		Turn:          White,
		Clock:         Clock{Mode: ClockNone},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cfg != nil {
		if cfg.BaseSeconds <= 0 || cfg.IncrementSeconds < 0 {
			return nil, errf("invalid clock config")
		}
		s.Clock = Clock{
			Mode:             ClockArmed,
			BaseSeconds:      cfg.BaseSeconds,
			IncrementSeconds: cfg.IncrementSeconds,
			WhiteRemaining:   cfg.BaseSeconds,
			BlackRemaining:   cfg.BaseSeconds,
		}
	}

	e := &entry{s: s}
	r.mu.Lock()
	code, err := r.allocCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	s.RoomCode = code
	r.byID[s.ID] = e
	r.byCode[code] = s.ID
	r.mu.Unlock()

	// The session is joinable the moment it is indexed; saving under the
	// entry lock keeps the blob from racing an immediate join.
	e.mu.Lock()
	cp := s.Clone()
	r.persist(ctx, s)
	e.mu.Unlock()
	return cp, nil
}

// Get returns a copy of the session, restoring from the write-through store
// on an in-memory miss so reconnects survive a restart.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	e, err := r.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// FindByRoomCode matches only sessions still waiting for a guest; a code
// whose session has moved on behaves exactly like an unknown code.
func (r *Registry) FindByRoomCode(ctx context.Context, code string) (*Session, error) {
	id, ok := r.ResolveRoomCode(code)
	if !ok {
		return nil, ErrNotFound
	}
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusWaiting {
		return nil, ErrNotFound
	}
	return s, nil
}

// ResolveRoomCode maps a code to its session id regardless of join state,
// so duplicate joins from an already seated guest stay idempotent.
func (r *Registry) ResolveRoomCode(code string) (string, bool) {
	r.mu.RLock()
	id, ok := r.byCode[code]
	r.mu.RUnlock()
	return id, ok
}

// Mutate applies fn under the session's exclusive lock. On success the new
// state is written through to the store and a copy returned; on error the
// session is untouched. This is the concurrency boundary every state machine
// transition, clock settle and broadcast enqueue runs inside.
//
// The write-through save also happens under the lock: saving after release
// would let two mutations persist out of order and leave the blob behind the
// broadcast state, which a restart would then resurrect. Only this one
// session waits on the save.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(s *Session) error) (*Session, error) {
	e, err := r.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if err := fn(e.s); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	cp := e.s.Clone()
	r.persist(ctx, cp)
	e.mu.Unlock()

	// Codes stay resolvable while the session lives (duplicate joins from a
	// seated guest resolve through them) and are released at terminal states.
	if cp.Status.Terminal() {
		r.mu.Lock()
		if r.byCode[cp.RoomCode] == cp.ID {
			delete(r.byCode, cp.RoomCode)
		}
		r.mu.Unlock()
	}

	return cp, nil
}

func (r *Registry) resolve(ctx context.Context, id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	if r.store == nil {
		return nil, ErrNotFound
	}

	s, err := r.store.Load(ctx, id)
	if err != nil {
		obslog.L().Warn("session_restore_error", zap.String("session_id", id), zap.Error(err))
		return nil, ErrNotFound
	}
	if s == nil {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[id]; ok {
		return existing, nil
	}
	e = &entry{s: s}
	r.byID[id] = e
	if !s.Status.Terminal() {
		r.byCode[s.RoomCode] = s.ID
	}
	obslog.L().Info("session_restore", zap.String("session_id", id), zap.String("status", string(s.Status)))
	return e, nil
}

func (r *Registry) persist(ctx context.Context, s *Session) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, s); err != nil {
		obslog.L().Warn("session_persist_error", zap.String("session_id", s.ID), zap.Error(err))
	}
}

func (r *Registry) allocCodeLocked() (string, error) {
	for i := 0; i < 5; i++ {
		code, err := codeGen()
		if err != nil {
			return "", err
		}
		if _, taken := r.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", ErrRoomCodeExhausted
}

// codeGen returns `AR-` + 6 upper alnum.
func codeGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return "AR-" + string(b), nil
}

func pickColor(choice ColorChoice) Color {
	switch choice {
	case ChoiceWhite:
		return White
	case ChoiceBlack:
		return Black
	}
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		return Black
	}
	return White
}
