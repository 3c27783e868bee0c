package app

import (
	"context"
	"time"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// UserRepository abstracts where user records live (memory, MongoDB).
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, uid string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByCustomerID(ctx context.Context, customerID string) (domain.User, error)
	// Update runs fn against the current record and stores the result atomically.
	// fn may be invoked more than once when a concurrent writer wins.
	Update(ctx context.Context, uid string, fn func(*domain.User) error) (domain.User, error)
	// IncrementXP atomically adds delta and returns the record after the write.
	IncrementXP(ctx context.Context, uid string, delta int) (domain.User, error)
	// AddBadge adds slug to the badge set; added is false when it was already present.
	AddBadge(ctx context.Context, uid, slug string) (added bool, err error)
	// Watch streams the current record followed by every change until cancel is called.
	Watch(ctx context.Context, uid string) (<-chan domain.User, func(), error)
}

// CourseRepository stores generated courses.
type CourseRepository interface {
	Get(ctx context.Context, id string) (domain.Course, error)
	Save(ctx context.Context, course domain.Course) error
	ListByUser(ctx context.Context, uid string) ([]domain.Course, error)
	Update(ctx context.Context, id string, fn func(*domain.Course) error) (domain.Course, error)
	Delete(ctx context.Context, id string) error
}

// ChallengeRepository stores one daily challenge per user per day.
type ChallengeRepository interface {
	Get(ctx context.Context, id string) (domain.DailyChallenge, error)
	// Create stores c unless a challenge with the same id exists, in which case the stored one is returned.
	Create(ctx context.Context, c domain.DailyChallenge) (domain.DailyChallenge, error)
	// MarkCompleted flips completed from false to true exactly once.
	MarkCompleted(ctx context.Context, id string) (domain.DailyChallenge, error)
	// Reopen reverts a completed claim whose answer could not be applied.
	Reopen(ctx context.Context, id string) error
}

// ActivityLog is the append-only ledger of gamification events.
type ActivityLog interface {
	Record(ctx context.Context, entry domain.Activity) error
	Recent(ctx context.Context, uid string, limit int) ([]domain.Activity, error)
}

// EventPublisher delivers presentation events to connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// CourseGenerator produces course content for a topic.
type CourseGenerator interface {
	GenerateCourse(ctx context.Context, req domain.CourseRequest) (domain.GeneratedCourse, error)
}

// ChallengeGenerator produces a single quiz question for a topic.
type ChallengeGenerator interface {
	GenerateChallenge(ctx context.Context, topic string) (domain.GeneratedChallenge, error)
}

// Locker serializes work across service instances.
type Locker interface {
	// Acquire returns ok=false without error when someone else holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// ReminderScheduler arms and disarms daily streak reminders.
type ReminderScheduler interface {
	Schedule(uid string, hour, minute int) error
	CancelAll(uid string)
}

// Clock returns the current time in the zone that defines calendar days.
type Clock func() time.Time

// ClockIn returns a Clock pinned to loc.
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}
