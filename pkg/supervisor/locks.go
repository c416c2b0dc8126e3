package supervisor

import "sync"

// sessionLocks provides per-session mutual exclusion without blocking: a
// second request for a busy session is refused, not queued. The zero value is
// not usable; construct with newSessionLocks.
type sessionLocks struct {
	mu     sync.Mutex
	active map[string]bool
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{active: make(map[string]bool)}
}

// TryAcquire claims the session. Returns false if another request holds it.
func (l *sessionLocks) TryAcquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[sessionID] {
		return false
	}
	l.active[sessionID] = true
	return true
}

// Release frees the session for the next request.
func (l *sessionLocks) Release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sessionID)
}
