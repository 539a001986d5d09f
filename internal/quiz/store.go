package quiz

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrActiveSession is returned when a student already has a running session
// for the same chapter.
var ErrActiveSession = errors.New("an active session already exists for this chapter")

// Store holds all in-flight quiz sessions for this server. One running
// session is allowed per (student, chapter) pair.
type Store struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Session
	byOwner map[string]uuid.UUID
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		byID:    make(map[uuid.UUID]*Session),
		byOwner: make(map[string]uuid.UUID),
	}
}

func ownerKey(studentID int, chapter string) string {
	return fmt.Sprintf("%d:%s", studentID, chapter)
}

// Put registers a new session, rejecting a second session for the same
// student and chapter.
func (st *Store) Put(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := ownerKey(s.StudentID, s.Chapter)
	if _, exists := st.byOwner[key]; exists {
		return ErrActiveSession
	}
	st.byID[s.ID] = s
	st.byOwner[key] = s.ID
	return nil
}

// Get looks up a session by ID.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byID[id]
	return s, ok
}

// GetByOwner looks up the session a student has open for a chapter.
func (st *Store) GetByOwner(studentID int, chapter string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byOwner[ownerKey(studentID, chapter)]
	if !ok {
		return nil, false
	}
	s, ok := st.byID[id]
	return s, ok
}

// Remove drops a session from the store.
func (st *Store) Remove(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.byID[id]
	if !ok {
		return
	}
	delete(st.byID, id)
	delete(st.byOwner, ownerKey(s.StudentID, s.Chapter))
}

// ExpiredRunning returns a snapshot of sessions that are still RUNNING but
// whose countdown has reached zero. Used by the expiry sweeper.
func (st *Store) ExpiredRunning(now time.Time) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var expired []*Session
	for _, s := range st.byID {
		if s.State() == StateRunning && s.Expired(now) {
			expired = append(expired, s)
		}
	}
	return expired
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}
