package game

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSessionIdle is how long an abandoned session survives.
	DefaultSessionIdle = 15 * time.Minute
	// DefaultSweepInterval is how often abandoned sessions are collected.
	DefaultSweepInterval = time.Minute
)

// Registry is the process-wide directory of active sessions, keyed by
// join code. It is the only state shared between sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	once     sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
}

// Create registers a new session under a fresh unique code.
func (r *Registry) Create(settings Settings) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.generateCodeLocked()
	s := NewSession(code, settings)
	r.sessions[code] = s
	return s
}

func (r *Registry) generateCodeLocked() string {
	for {
		buf := make([]byte, 3)
		rand.Read(buf)
		code := hex.EncodeToString(buf)
		if _, taken := r.sessions[code]; !taken {
			return code
		}
	}
}

// Get looks a session up by its join code, case-insensitively.
func (r *Registry) Get(code string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[strings.ToLower(code)]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s, nil
}

// FindOpenPublic returns a public lobby with a free seat, if any.
func (r *Registry) FindOpenPublic() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.Joinable() {
			return s
		}
	}
	return nil
}

// Remove drops a session from the directory and stops its timers.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()
	if ok {
		s.MarkStopped()
	}
}

// Count reports the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// sweep collects sessions that have sat empty past maxIdle.
func (r *Registry) sweep(maxIdle time.Duration, onRemove func(*Session)) {
	r.mu.Lock()
	var stale []*Session
	for code, s := range r.sessions {
		if s.IdleAndEmpty(maxIdle) {
			delete(r.sessions, code)
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.MarkStopped()
		if onRemove != nil {
			onRemove(s)
		}
	}
}

// StartSweeper runs the garbage collection loop until Close is called.
// onRemove lets the caller clean up external state for each collected
// session.
func (r *Registry) StartSweeper(interval, maxIdle time.Duration, onRemove func(*Session)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(maxIdle, onRemove)
			case <-r.done:
				return
			}
		}
	}()
}

// Close stops the sweeper.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}
