// Package session keeps uploaded datasets in memory for the lifetime of a
// client session and evicts idle sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"excelinsights/domain/core"
	"excelinsights/domain/dataset"
	"excelinsights/internal/metrics"

	"go.uber.org/zap"
)

// DefaultTTL is the idle time after which a session is evicted.
const DefaultTTL = 30 * time.Minute

// Session owns one uploaded dataset. Reads share the lock; mutations are
// exclusive.
type Session struct {
	ID        core.SessionID
	RecordID  core.DatasetID
	Filename  string
	CreatedAt time.Time

	mu         sync.RWMutex
	ds         *dataset.Dataset
	closed     bool // set by release under mu
	lastAccess time.Time
	accessMu   sync.Mutex
}

// Collection is the vector collection holding the session's chunks.
func (s *Session) Collection() string {
	return "session-" + s.ID.String()
}

// Read runs fn with shared access to the dataset.
func (s *Session) Read(fn func(ds *dataset.Dataset) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.ds)
}

// Mutate runs fn with exclusive access to the dataset. fn must leave the
// dataset and anything derived from it (the index) consistent. A released
// session reports ErrSessionNotFound and fn is not run.
func (s *Session) Mutate(fn func(ds *dataset.Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, s.ID)
	}
	return fn(s.ds)
}

// LastAccess returns when the session was last used.
func (s *Session) LastAccess() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.lastAccess
}

func (s *Session) touch(now time.Time) {
	s.accessMu.Lock()
	s.lastAccess = now
	s.accessMu.Unlock()
}

// EvictFunc releases resources held for an evicted session.
type EvictFunc func(ctx context.Context, s *Session)

// Manager creates, looks up and expires sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
	ttl      time.Duration
	onEvict  EvictFunc
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(ttl time.Duration, onEvict EvictFunc, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[core.SessionID]*Session),
		ttl:      ttl,
		onEvict:  onEvict,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new session for ds.
func (m *Manager) Create(ds *dataset.Dataset, filename string, recordID core.DatasetID) *Session {
	now := m.now()
	s := &Session{
		ID:         core.NewSessionID(),
		RecordID:   recordID,
		Filename:   filename,
		CreatedAt:  now,
		ds:         ds,
		lastAccess: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	m.logger.Info("session created", zap.String("session_id", s.ID.String()), zap.String("file", filename))
	return s
}

// Get returns the session and marks it used.
func (m *Manager) Get(id core.SessionID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// Delete removes the session and releases its resources.
func (m *Manager) Delete(ctx context.Context, id core.SessionID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}

	metrics.ActiveSessions.Set(float64(n))
	m.release(ctx, s)
	m.logger.Info("session deleted", zap.String("session_id", id.String()))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were evicted.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastAccess().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	metrics.ActiveSessions.Set(float64(n))
	for _, s := range expired {
		m.release(ctx, s)
		m.logger.Info("session expired", zap.String("session_id", s.ID.String()), zap.Time("last_access", s.LastAccess()))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Close evicts every session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	metrics.ActiveSessions.Set(0)
	for _, s := range all {
		m.release(ctx, s)
	}
}

func (m *Manager) release(ctx context.Context, s *Session) {
	// wait for in-flight readers and mutations
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if m.onEvict != nil {
		m.onEvict(ctx, s)
	}
}
