package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logos-backend/internal/common/logger"
	"logos-backend/internal/store"
)

// Notifier delivers a reminder message to a user. The chat-platform client
// behind it is an external collaborator; errors are opaque to the scheduler.
type Notifier interface {
	Notify(ctx context.Context, user store.UserID, text string) error
}

// Scheduler arms one independent timer per pending schedule event and fires
// a notification when it expires. Timers share no state and never block one
// another. An armed timer is never cancelled; instead each event carries an
// id assigned at creation, and a firing timer re-reads the store and skips
// delivery when no event with that id remains for the user.
type Scheduler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	store    *store.Store
	notifier Notifier
	incoming chan store.PendingEvent
	wg       sync.WaitGroup
	armed    atomic.Int64
}

func New(st *store.Store, notifier Notifier) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:      ctx,
		cancel:   cancel,
		store:    st,
		notifier: notifier,
		incoming: make(chan store.PendingEvent, 64),
	}
}

// Start begins the dispatcher that turns enqueued events into timers.
func (s *Scheduler) Start() {
	logger.Info().Msg("Starting reminder scheduler")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case pe := <-s.incoming:
				s.arm(pe)
			}
		}
	}()
}

// Stop cancels the dispatcher and wakes every sleeping timer without
// delivering.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Info().Msg("Reminder scheduler stopped")
}

// Seed arms a timer for every stored event, typically at startup. Past-due
// instants fire immediately.
func (s *Scheduler) Seed(events []store.PendingEvent) {
	for _, pe := range events {
		s.arm(pe)
	}
	logger.Info().Int("events", len(events)).Msg("Scheduler seeded from store")
}

// Enqueue hands a newly created event to the dispatcher.
func (s *Scheduler) Enqueue(user store.UserID, ev store.ScheduleEvent) {
	select {
	case s.incoming <- store.PendingEvent{UserID: user, Event: ev}:
	case <-s.ctx.Done():
	}
}

// Armed reports how many timers are currently pending.
func (s *Scheduler) Armed() int64 {
	return s.armed.Load()
}

func (s *Scheduler) arm(pe store.PendingEvent) {
	s.wg.Add(1)
	s.armed.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.armed.Add(-1)

		delay := time.Until(pe.Event.When)
		if delay < 0 {
			delay = 0
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
		s.fire(pe)
	}()
}

func (s *Scheduler) fire(pe store.PendingEvent) {
	if !s.stillStored(pe) {
		logger.Debug().
			Int64("user", int64(pe.UserID)).
			Str("event", pe.Event.Name).
			Msg("Event gone before timer fired, skipping delivery")
		return
	}

	text := fmt.Sprintf("⏰ Reminder: %s is happening now!", pe.Event.Name)
	if err := s.notifier.Notify(s.ctx, pe.UserID, text); err != nil {
		logger.Warn().Err(err).
			Int64("user", int64(pe.UserID)).
			Str("event", pe.Event.Name).
			Msg("Reminder delivery failed")
	}
}

func (s *Scheduler) stillStored(pe store.PendingEvent) bool {
	ok, err := store.Read(s.store, pe.UserID, store.Schedules, func(su *store.ScheduleUser) (bool, error) {
		for _, ev := range su.Events {
			if ev.ID == pe.Event.ID {
				return true, nil
			}
		}
		return false, nil
	})
	return err == nil && ok
}
