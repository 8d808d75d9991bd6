// Package session keeps one cart, conversation and notification board per
// anonymous browser session.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/remedy-radar/backend/internal/apperr"
	"github.com/zhouzirui/remedy-radar/backend/internal/auth"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/notify"
	"github.com/zhouzirui/remedy-radar/backend/internal/observability"
	cartservice "github.com/zhouzirui/remedy-radar/backend/internal/service/cart"
	chatservice "github.com/zhouzirui/remedy-radar/backend/internal/service/chat"
	"github.com/zhouzirui/remedy-radar/backend/internal/storage/blob"
)

// Session bundles the per-visitor stores.
type Session struct {
	ID        string
	CreatedAt time.Time

	Auth    *auth.Session
	Notices *notify.Board
	Cart    *cartservice.Store
	Chat    *chatservice.Conversation

	clock    func() time.Time
	lastSeen atomic.Int64
	attached atomic.Int32
}

// Info returns the wire representation of the session.
func (s *Session) Info() chat.Session {
	return chat.Session{ID: s.ID, CreatedAt: s.CreatedAt}
}

// LastSeen reports the last time the session was accessed.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.touch(s.clock())
}

// Attach registers a live connection. Sweep never evicts a session while a
// connection is attached; the returned detach func touches the session so
// the idle clock restarts from the disconnect. Calling detach twice is
// harmless.
func (s *Session) Attach() (detach func()) {
	s.attached.Add(1)
	s.Touch()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.Touch()
			s.attached.Add(-1)
		})
	}
}

// Attached reports the number of live connections.
func (s *Session) Attached() int {
	return int(s.attached.Load())
}

func (s *Session) close() {
	s.Cart.Close()
	s.Chat.Close()
	s.Notices.Close()
}

// Options configures the stores built for every session.
type Options struct {
	Cart    cartservice.Options
	Notify  notify.Options
	Chat    chatservice.Options
	IdleTTL time.Duration
}

// Registry 管理所有匿名会话，线程安全。
type Registry struct {
	blobs   blob.Store
	replier chatservice.Replier
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry 创建会话注册表。blobs 为空时使用内存存储。
func NewRegistry(blobs blob.Store, replier chatservice.Replier, opts Options, logger *zap.Logger) *Registry {
	if blobs == nil {
		blobs = blob.NewMemory()
	}
	if opts.Cart.Key == "" {
		opts.Cart.Key = cartservice.DefaultKey
	}
	return &Registry{
		blobs:    blobs,
		replier:  replier,
		opts:     opts,
		logger:   observability.OrNop(logger).Named("session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create provisions a fresh session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	return r.open(ctx, uuid.NewString())
}

// Restore returns the live session for id, or rebuilds it so a returning
// browser gets its persisted cart back.
func (r *Registry) Restore(ctx context.Context, id string) (*Session, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("session id %q: %w", id, apperr.ErrInvalidInput)
	}
	id = parsed.String()

	if s, err := r.Get(id); err == nil {
		return s, nil
	}
	return r.open(ctx, id)
}

func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	now := r.now()
	logger := r.logger.With(zap.String("session", id))

	cartOpts := r.opts.Cart
	cartOpts.Key = r.opts.Cart.Key + ":" + id

	users := auth.NewSession()
	board := notify.NewBoard(r.opts.Notify, logger)
	s := &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		Auth:      users,
		Notices:   board,
		Cart:      cartservice.NewStore(ctx, cartOpts, r.blobs, users, board, logger),
		Chat:      chatservice.NewConversation(r.opts.Chat, r.replier, logger),
		clock:     r.clock,
	}
	s.touch(now)

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		s.close()
		existing.touch(now)
		return existing, nil
	}
	r.sessions[id] = s
	r.mu.Unlock()

	logger.Info("session opened")
	return s, nil
}

func (r *Registry) clock() time.Time {
	return r.now()
}

// Get looks a session up and marks it as active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete closes and removes a session. Its persisted cart stays in storage.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return apperr.ErrSessionNotFound
	}

	s.close()
	r.logger.Info("session closed", zap.String("session", id))
	return nil
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were removed. Sessions with an attached connection are kept. A zero
// IdleTTL disables eviction.
func (r *Registry) Sweep(now time.Time) int {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.Attached() == 0 && s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// IDs lists live session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// Janitor runs Sweep every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
