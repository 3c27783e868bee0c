package app

import (
	"context"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/sirupsen/logrus"
)

// LevelState is the level-up detector's state.
type LevelState int

const (
	LevelWatching LevelState = iota
	LevelAnnounced
)

func (s LevelState) String() string {
	if s == LevelAnnounced {
		return "ANNOUNCED"
	}
	return "WATCHING"
}

// LevelWatcher observes one user's record and persists and announces level-ups.
// Exactly one announcement is emitted per observed jump; jumps seen while an
// announcement is still open are persisted and announced after Dismiss.
type LevelWatcher struct {
	users  UserRepository
	events EventPublisher
	clock  Clock
	uid    string
	log    *logrus.Entry

	mu      sync.Mutex
	state   LevelState
	highest int
	pending int
}

func NewLevelWatcher(users UserRepository, events EventPublisher, clock Clock, uid string) *LevelWatcher {
	if clock == nil {
		clock = ClockIn(nil)
	}
	return &LevelWatcher{
		users:  users,
		events: events,
		clock:  clock,
		uid:    uid,
		log:    logrus.WithFields(logrus.Fields{"component": "level", "uid": uid}),
	}
}

// State reports the current detector state.
func (w *LevelWatcher) State() LevelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run consumes user changes until ctx is done or the watch ends.
func (w *LevelWatcher) Run(ctx context.Context) error {
	updates, cancel, err := w.users.Watch(ctx, w.uid)
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case user, ok := <-updates:
			if !ok {
				return nil
			}
			w.Observe(ctx, user)
		}
	}
}

// Observe handles one user snapshot.
func (w *LevelWatcher) Observe(ctx context.Context, user domain.User) {
	next, up := gamification.DetectLevelUp(user.Level, user.XP)
	if !up {
		return
	}

	stored, err := w.users.Update(ctx, user.ID, func(u *domain.User) error {
		if lvl, ok := gamification.DetectLevelUp(u.Level, u.XP); ok {
			u.Level = lvl
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("level not persisted")
		return
	}
	if stored.Level > next {
		next = stored.Level
	}

	w.mu.Lock()
	if next <= w.highest {
		w.mu.Unlock()
		return
	}
	w.highest = next
	if w.state == LevelAnnounced {
		w.pending = next
		w.mu.Unlock()
		return
	}
	w.state = LevelAnnounced
	w.mu.Unlock()
	w.announce(ctx, next)
}

// Dismiss closes the open announcement and flushes a level reached meanwhile.
func (w *LevelWatcher) Dismiss(ctx context.Context) {
	w.mu.Lock()
	if w.state != LevelAnnounced {
		w.mu.Unlock()
		return
	}
	pending := w.pending
	w.pending = 0
	if pending == 0 {
		w.state = LevelWatching
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.announce(ctx, pending)
}

func (w *LevelWatcher) announce(ctx context.Context, level int) {
	w.log.WithField("level", level).Info("level up")
	if w.events != nil {
		w.events.Publish(ctx, domain.Event{
			Type:   domain.EventLevelUp,
			UserID: w.uid,
			Level:  level,
			At:     w.clock(),
		})
	}
}
