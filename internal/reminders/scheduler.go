package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
)

const reminderMessage = "Keep your streak alive! Today's challenge is waiting."

// Scheduler runs one daily streak reminder per user in process.
type Scheduler struct {
	sched  gocron.Scheduler
	users  app.UserRepository
	events app.EventPublisher
	clock  app.Clock
	log    *logrus.Entry

	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

// New creates a scheduler whose daily jobs fire in loc.
func New(users app.UserRepository, events app.EventPublisher, clock app.Clock, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		sched:  sched,
		users:  users,
		events: events,
		clock:  clock,
		log:    logrus.WithField("component", "reminders"),
		jobs:   make(map[string]uuid.UUID),
	}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// Schedule replaces any reminder for uid with a daily one at hour:minute.
func (s *Scheduler) Schedule(uid string, hour, minute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(uid)

	job, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := s.Remind(ctx, uid); err != nil {
				s.log.WithError(err).WithField("uid", uid).Warn("reminder failed")
			}
		}),
		gocron.WithName("streak-reminder:"+uid),
		gocron.WithTags(uid),
	)
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	s.jobs[uid] = job.ID()
	s.log.WithField("uid", uid).WithField("at", fmt.Sprintf("%02d:%02d", hour, minute)).Debug("reminder scheduled")
	return nil
}

func (s *Scheduler) CancelAll(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(uid)
}

// cancelLocked drops every job tagged with uid. Callers hold s.mu.
func (s *Scheduler) cancelLocked(uid string) {
	delete(s.jobs, uid)
	s.sched.RemoveByTags(uid)
}

// Jobs reports how many reminder jobs exist for uid.
func (s *Scheduler) Jobs(uid string) int {
	n := 0
	for _, j := range s.sched.Jobs() {
		for _, tag := range j.Tags() {
			if tag == uid {
				n++
				break
			}
		}
	}
	return n
}

// NextRun reports when uid's reminder fires next.
func (s *Scheduler) NextRun(uid string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[uid]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	for _, j := range s.sched.Jobs() {
		if j.ID() == id {
			next, err := j.NextRun()
			return next, err == nil
		}
	}
	return time.Time{}, false
}

// Remind publishes a streak reminder unless the user already answered today.
func (s *Scheduler) Remind(ctx context.Context, uid string) (bool, error) {
	user, err := s.users.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	now := s.clock()
	if user.LastCompleted == gamification.DateString(now) {
		return false, nil
	}
	s.events.Publish(ctx, domain.Event{
		Type:    domain.EventStreakReminder,
		UserID:  uid,
		Message: reminderMessage,
		At:      now,
	})
	return true, nil
}
