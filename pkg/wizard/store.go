package wizard

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps live sessions in memory. Sessions idle for longer than the TTL,
// or pushed out by newer ones beyond the size limit, are dropped.
type Store struct {
	wiz      *Wizard
	deps     Deps
	sessions *expirable.LRU[string, *Session]
}

// NewStore creates a session store holding at most size sessions
func NewStore(wiz *Wizard, deps Deps, size int, idleTTL time.Duration) *Store {
	return &Store{
		wiz:      wiz,
		deps:     deps,
		sessions: expirable.NewLRU[string, *Session](size, nil, idleTTL),
	}
}

// Wizard returns the wizard sessions are created with
func (st *Store) Wizard() *Wizard {
	return st.wiz
}

// Create starts a new session with a random ID
func (st *Store) Create() *Session {
	sess := NewSession(uuid.NewString(), st.wiz, st.deps)
	st.sessions.Add(sess.ID(), sess)
	st.record()
	return sess
}

// Get returns a live session and resets its idle timer
func (st *Store) Get(id string) (*Session, bool) {
	sess, ok := st.sessions.Get(id)
	if !ok {
		st.record()
		return nil, false
	}
	st.sessions.Add(id, sess)
	return sess, true
}

// Delete drops a session
func (st *Store) Delete(id string) {
	st.sessions.Remove(id)
	st.record()
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	return st.sessions.Len()
}

func (st *Store) record() {
	if st.deps.Recorder != nil {
		st.deps.Recorder.SetSessions(st.sessions.Len())
	}
}
