package server

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrDuplicateIdentity is returned by Insert when a session already exists
// for the player's unique ID and the directory is not configured to evict.
var ErrDuplicateIdentity = errors.New("a session already exists for this identity")

// Directory is the concurrency-safe collection of live sessions, keyed by
// player identity. Mutating operations hold the lock only for the structural
// change itself, never during I/O, so a slow connection cannot stall lookups
// for everyone else.
type Directory struct {
	mutex  sync.RWMutex
	byID   map[uuid.UUID]*Session
	byName map[string]*Session

	// evictDuplicates selects the duplicate-login policy: when true, a new
	// session replaces an existing one for the same identity; when false,
	// the new login is rejected.
	evictDuplicates bool
}

func NewDirectory(evictDuplicates bool) *Directory {
	return &Directory{
		byID:            make(map[uuid.UUID]*Session),
		byName:          make(map[string]*Session),
		evictDuplicates: evictDuplicates,
	}
}

// Insert adds a session to the directory. If a session already exists for
// the same player ID the configured policy applies: either the insert fails
// with ErrDuplicateIdentity, or the prior session is removed and returned so
// the caller can disconnect it outside the directory's lock.
func (d *Directory) Insert(s *Session) (evicted *Session, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if existing, ok := d.byID[s.PlayerID]; ok {
		if !d.evictDuplicates {
			return nil, ErrDuplicateIdentity
		}
		delete(d.byID, existing.PlayerID)
		delete(d.byName, strings.ToLower(existing.Username))
		evicted = existing
	}

	d.byID[s.PlayerID] = s
	d.byName[strings.ToLower(s.Username)] = s
	return evicted, nil
}

// Remove deletes the session for the given player ID, returning it if it was
// present. Removing an absent ID is a no-op.
func (d *Directory) Remove(playerID uuid.UUID) *Session {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	s, ok := d.byID[playerID]
	if !ok {
		return nil
	}
	delete(d.byID, playerID)
	delete(d.byName, strings.ToLower(s.Username))
	return s
}

// FindByID returns the live session for the player ID, or nil.
func (d *Directory) FindByID(playerID uuid.UUID) *Session {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.byID[playerID]
}

// FindByName returns the live session for the username (case-insensitive),
// or nil.
func (d *Directory) FindByName(username string) *Session {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.byName[strings.ToLower(username)]
}

// Snapshot returns a point-in-time copy of the live sessions ordered by
// username. The returned slice is not affected by subsequent directory
// mutations and is safe to iterate while other operations proceed.
func (d *Directory) Snapshot() []*Session {
	d.mutex.RLock()
	sessions := make([]*Session, 0, len(d.byID))
	for _, s := range d.byID {
		sessions = append(sessions, s)
	}
	d.mutex.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Username < sessions[j].Username
	})
	return sessions
}

// Len returns the number of live sessions.
func (d *Directory) Len() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.byID)
}
