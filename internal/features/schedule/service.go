package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"logos-backend/internal/store"
)

// Custom errors for schedule service
var (
	ErrEventNotFound = errors.New("event not found")
	ErrBadTimezone   = errors.New("unknown timezone")
	ErrBadDateTime   = errors.New("bad date or time format")
)

// Enqueuer receives events created at runtime so a reminder timer gets armed
// for them. The scheduler implements it.
type Enqueuer interface {
	Enqueue(user store.UserID, ev store.ScheduleEvent)
}

type Service interface {
	Add(user store.UserID, name string, when time.Time, tz string) (store.ScheduleEvent, error)
	AddAt(user store.UserID, name, date, clock string) (store.ScheduleEvent, error)
	List(user store.UserID) (string, error)
	Delete(user store.UserID, name string) error
	PruneCompleted(user store.UserID, now time.Time) (int, error)
	SetTimezone(user store.UserID, tz string) error
	Timezone(user store.UserID) string
}

type service struct {
	store *store.Store
	sched Enqueuer
}

func NewService(st *store.Store, sched Enqueuer) Service {
	return &service{store: st, sched: sched}
}

// Add inserts an event and keeps the list sorted ascending by instant. The
// created event is handed to the scheduler so its timer is armed immediately.
func (s *service) Add(user store.UserID, name string, when time.Time, tz string) (store.ScheduleEvent, error) {
	ev, err := store.Write(s.store, user, store.Schedules, func(su *store.ScheduleUser) (store.ScheduleEvent, error) {
		ev := store.ScheduleEvent{
			ID:   uuid.NewString(),
			Name: name,
			When: when.UTC(),
			TZ:   tz,
		}
		su.Events = append(su.Events, ev)
		sort.SliceStable(su.Events, func(i, j int) bool {
			return su.Events[i].When.Before(su.Events[j].When)
		})
		return ev, nil
	})
	if err != nil {
		return store.ScheduleEvent{}, err
	}
	if s.sched != nil {
		s.sched.Enqueue(user, ev)
	}
	return ev, nil
}

// AddAt parses "YYYY-MM-DD" and "HH:MM" in the user's stored timezone and
// adds the event. Users without a record yet are treated as UTC.
func (s *service) AddAt(user store.UserID, name, date, clock string) (store.ScheduleEvent, error) {
	tz := s.Timezone(user)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	local, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return store.ScheduleEvent{}, fmt.Errorf("%w: %v", ErrBadDateTime, err)
	}
	return s.Add(user, name, local, tz)
}

// List renders the user's events in ascending order, each instant shown in
// the timezone it was created with.
func (s *service) List(user store.UserID) (string, error) {
	return store.Read(s.store, user, store.Schedules, func(su *store.ScheduleUser) (string, error) {
		var b strings.Builder
		for _, ev := range su.Events {
			loc, err := time.LoadLocation(ev.TZ)
			if err != nil {
				loc = time.UTC
			}
			fmt.Fprintf(&b, "%s : %s\n", ev.Name, ev.When.In(loc).Format("2006-01-02 15:04 MST"))
		}
		return b.String(), nil
	})
}

func (s *service) Delete(user store.UserID, name string) error {
	_, err := store.Write(s.store, user, store.Schedules, func(su *store.ScheduleUser) (struct{}, error) {
		for i, ev := range su.Events {
			if ev.Name == name {
				su.Events = append(su.Events[:i], su.Events[i+1:]...)
				return struct{}{}, nil
			}
		}
		return struct{}{}, ErrEventNotFound
	})
	return err
}

// PruneCompleted removes every event with an instant at or before now,
// preserving the relative order of the rest. Returns how many were removed.
func (s *service) PruneCompleted(user store.UserID, now time.Time) (int, error) {
	return store.Write(s.store, user, store.Schedules, func(su *store.ScheduleUser) (int, error) {
		kept := su.Events[:0]
		for _, ev := range su.Events {
			if ev.When.After(now) {
				kept = append(kept, ev)
			}
		}
		removed := len(su.Events) - len(kept)
		su.Events = kept
		return removed, nil
	})
}

// SetTimezone changes how future events are displayed; stored instants are
// unaffected.
func (s *service) SetTimezone(user store.UserID, tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %s", ErrBadTimezone, tz)
	}
	_, err := store.Write(s.store, user, store.Schedules, func(su *store.ScheduleUser) (struct{}, error) {
		su.Timezone = tz
		return struct{}{}, nil
	})
	return err
}

// Timezone returns the user's stored timezone, defaulting to UTC.
func (s *service) Timezone(user store.UserID) string {
	tz, err := store.Read(s.store, user, store.Schedules, func(su *store.ScheduleUser) (string, error) {
		return su.Timezone, nil
	})
	if err != nil || tz == "" {
		return "UTC"
	}
	return tz
}
