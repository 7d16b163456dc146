package store

import (
	"errors"
	"sync"
)

// ErrUserNotFound is returned by read paths when no record exists for the
// user. Reads never create records.
var ErrUserNotFound = errors.New("user not found")

// Snapshot is a deep copy of every record in the store, taken at a single
// consistent point under the exclusive lock.
type Snapshot map[UserID]User

// Store is the in-memory record store. One store-wide RWMutex arbitrates all
// access: many concurrent readers, one exclusive writer. Callers never touch
// the lock directly; they go through Read and Write with a short synchronous
// closure. A write for any user serializes against writes for every other
// user, which keeps the snapshot taken for persistence trivially consistent.
type Store struct {
	mu    sync.RWMutex
	users map[UserID]*User

	// publish hands a post-write snapshot to the persistence layer. Called
	// after the lock is released, never while holding it.
	publish func(Snapshot)
}

// New creates an empty store. publish receives a full snapshot after every
// successful write; nil disables persistence hand-off.
func New(publish func(Snapshot)) *Store {
	if publish == nil {
		publish = func(Snapshot) {}
	}
	return &Store{
		users:   make(map[UserID]*User),
		publish: publish,
	}
}

// FromSnapshot creates a store pre-populated with a previously persisted
// snapshot.
func FromSnapshot(snap Snapshot, publish func(Snapshot)) *Store {
	s := New(publish)
	for id, u := range snap {
		rec := u.clone()
		s.users[id] = &rec
	}
	return s
}

// Sub selects one domain sub-record of a User. The same Read/Write machinery
// serves every domain view; each view picks its sub-record with one of these.
type Sub[T any] func(*User) *T

func Mimics(u *User) *MimicUser       { return &u.Mimic }
func Schedules(u *User) *ScheduleUser { return &u.Schedule }
func Wallets(u *User) *WalletUser     { return &u.Wallet }

// Read runs fn against the user's sub-record under the shared lock. The
// record is not created if absent; ErrUserNotFound is returned instead. fn
// must be fast, synchronous and must not mutate the record or retain the
// pointer past its return.
func Read[T, R any](s *Store, id UserID, sub Sub[T], fn func(*T) (R, error)) (R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		var zero R
		return zero, ErrUserNotFound
	}
	return fn(sub(u))
}

// Write runs fn against a mutable view of the user's sub-record under the
// exclusive lock, creating a default record if the user has none. When fn
// returns an error no snapshot is queued; any mutation fn made before failing
// is still visible, so closures must be all-or-nothing. On success a snapshot
// of the whole store is cloned while the lock is still held, then published
// after release. The lock never spans the persistence hand-off.
func Write[T, R any](s *Store, id UserID, sub Sub[T], fn func(*T) (R, error)) (R, error) {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		u = &User{}
		s.users[id] = u
	}
	r, err := fn(sub(u))
	if err != nil {
		s.mu.Unlock()
		var zero R
		return zero, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return r, nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(s.users))
	for id, u := range s.users {
		snap[id] = u.clone()
	}
	return snap
}

// Snapshot returns a consistent deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// PendingEvent pairs a stored schedule event with its owner, for scheduler
// seeding.
type PendingEvent struct {
	UserID UserID
	Event  ScheduleEvent
}

// Events returns every stored (user, event) pair, past-due ones included.
func (s *Store) Events() []PendingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PendingEvent
	for id, u := range s.users {
		for _, ev := range u.Schedule.Events {
			out = append(out, PendingEvent{UserID: id, Event: ev})
		}
	}
	return out
}

// Stats summarizes the store for the ops surface.
type Stats struct {
	Users  int `json:"users"`
	Mimics int `json:"mimics"`
	Events int `json:"events"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Users: len(s.users)}
	for _, u := range s.users {
		st.Mimics += len(u.Mimic.Mimics)
		st.Events += len(u.Schedule.Events)
	}
	return st
}
