package infrastructure

import "sync"

// SessionManager serializes reply generation per chat session.
type SessionManager struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSessionManager() *SessionManager {
	return &SessionManager{inFlight: make(map[string]struct{})}
}

// TryStart marks the session busy. It returns false when a reply is already
// in flight. Every true result must be paired with Finish.
func (sm *SessionManager) TryStart(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, busy := sm.inFlight[id]; busy {
		return false
	}
	sm.inFlight[id] = struct{}{}
	return true
}

func (sm *SessionManager) Finish(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.inFlight, id)
}

func (sm *SessionManager) InFlight() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.inFlight)
}
