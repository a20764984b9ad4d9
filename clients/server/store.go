package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/peicooks/framegen/pkg/session"
)

var errTooManySessions = errors.New("too many active sessions")

// sessionStore keeps one session per browser tab. Sessions live until the
// client deletes them or the server stops; nothing is persisted.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	max      int
	newFn    func() *session.Session
}

func newSessionStore(max int, newFn func() *session.Session) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session.Session),
		max:      max,
		newFn:    newFn,
	}
}

func (st *sessionStore) create() (string, *session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.sessions) >= st.max {
		return "", nil, errTooManySessions
	}
	id := uuid.NewString()
	s := st.newFn()
	st.sessions[id] = s
	return id, s, nil
}

func (st *sessionStore) get(id string) (*session.Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

func (st *sessionStore) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
