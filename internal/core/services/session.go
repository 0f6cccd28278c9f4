package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// SessionManager owns conversation sessions: it serializes access per
// session, enforces the retention bounds after every exchange and
// sweeps idle sessions.
type SessionManager struct {
	store       driven.SessionStore
	maxTurns    int
	maxTokens   int
	idleTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager creates a session manager with the given retention
// bounds.
func NewSessionManager(store driven.SessionStore, maxTurns, maxTokens int, idleTimeout time.Duration) *SessionManager {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &SessionManager{
		store:       store,
		maxTurns:    maxTurns,
		maxTokens:   maxTokens,
		idleTimeout: idleTimeout,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Lock serializes work on one session and returns the unlock function.
// Different sessions proceed independently.
func (m *SessionManager) Lock(sessionID string) func() {
	m.mu.Lock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Get returns the session, or a fresh empty one if it does not exist
// yet. A session comes into being with its first exchange.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.Session{ID: sessionID}, nil
		}
		return nil, err
	}
	return session, nil
}

// Record appends a completed exchange to the session, applies the
// retention bounds and persists. Failed exchanges are never recorded.
func (m *SessionManager) Record(ctx context.Context, sessionID, query, answer, lang string) error {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	session.Turns = append(session.Turns,
		domain.Turn{Role: domain.RoleUser, Content: query, Lang: lang, CreatedAt: now},
		domain.Turn{Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	)
	session.LastActive = now
	session.EvictOldest(m.maxTurns, m.maxTokens, EstimateTokens)

	return m.store.Save(ctx, session)
}

// History returns the session's retained turns, oldest first. An
// unknown session has no history.
func (m *SessionManager) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns, nil
}

// Clear removes all state for a session.
func (m *SessionManager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()
	return m.store.Delete(ctx, sessionID)
}

// SweepIdle removes sessions idle past the timeout and returns how many
// went.
func (m *SessionManager) SweepIdle(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-m.idleTimeout)
	removed, err := m.store.DeleteIdle(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Debug("Swept %d idle sessions", removed)
	}
	return removed, nil
}

// StartSweeper runs SweepIdle on the interval until ctx is cancelled.
func (m *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.SweepIdle(ctx); err != nil {
					logger.Warn("Idle sweep failed: %v", err)
				}
			}
		}
	}()
}
