package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/sirupsen/logrus"
)

// GamificationService owns XP, badge and lesson-progress use cases.
type GamificationService struct {
	users    UserRepository
	courses  CourseRepository
	activity ActivityLog
	events   EventPublisher
	clock    Clock
	log      *logrus.Entry
}

func NewGamificationService(users UserRepository, courses CourseRepository, activity ActivityLog, events EventPublisher, clock Clock) *GamificationService {
	if clock == nil {
		clock = ClockIn(nil)
	}
	return &GamificationService{
		users:    users,
		courses:  courses,
		activity: activity,
		events:   events,
		clock:    clock,
		log:      logrus.WithField("component", "gamification"),
	}
}

// AwardXP atomically adds delta to the user's XP. A zero delta only reads the record.
func (s *GamificationService) AwardXP(ctx context.Context, uid string, delta int, reason string) (domain.User, error) {
	if delta < 0 {
		return domain.User{}, domain.ErrNegativeXP
	}
	if delta == 0 {
		return s.users.Get(ctx, uid)
	}
	user, err := s.users.IncrementXP(ctx, uid, delta)
	if err != nil {
		return domain.User{}, fmt.Errorf("award xp: %w", err)
	}
	s.record(ctx, domain.Activity{
		UserID:   uid,
		Kind:     domain.ActivityXP,
		XP:       delta,
		Metadata: map[string]string{"reason": reason},
	})
	return user, nil
}

// AwardBadges adds every newly qualified badge and emits one event per badge actually added.
// Individual write failures are logged and skipped; the next flow recomputes from stored state.
func (s *GamificationService) AwardBadges(ctx context.Context, user domain.User, counters gamification.Counters) []string {
	var awarded []string
	for _, slug := range gamification.NewlyEarned(counters, user.Badges) {
		added, err := s.users.AddBadge(ctx, user.ID, slug)
		if err != nil {
			s.log.WithFields(logrus.Fields{"uid": user.ID, "badge": slug}).WithError(err).Error("add badge failed")
			continue
		}
		if !added {
			continue
		}
		awarded = append(awarded, slug)
		s.log.WithFields(logrus.Fields{"uid": user.ID, "badge": slug}).Info("badge earned")
		s.record(ctx, domain.Activity{UserID: user.ID, Kind: domain.ActivityBadge, Badge: slug})
		s.publish(ctx, domain.Event{Type: domain.EventBadgeEarned, UserID: user.ID, Badge: slug})
	}
	return awarded
}

// SyncBadges re-evaluates the course and streak badges from stored state.
func (s *GamificationService) SyncBadges(ctx context.Context, uid string) ([]string, error) {
	user, err := s.users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	counters, err := s.counters(ctx, user, false)
	if err != nil {
		return nil, err
	}
	return s.AwardBadges(ctx, user, counters), nil
}

// AdvanceLesson records that the learner reached page of a lesson. Lesson and
// course progress are written in one update. The final page grants quiz XP.
func (s *GamificationService) AdvanceLesson(ctx context.Context, uid, courseID, lessonID string, page int, answers []string) (domain.LessonAdvance, error) {
	var (
		lesson   domain.Lesson
		progress int
	)
	course, err := s.courses.Update(ctx, courseID, func(c *domain.Course) error {
		if c.UserID != uid {
			return domain.ErrCourseNotFound
		}
		idx := c.LessonIndex(lessonID)
		if idx < 0 {
			return domain.ErrLessonNotFound
		}
		p, err := gamification.LessonProgress(page, c.Lessons[idx].PageCount())
		if err != nil {
			return err
		}
		c.Lessons[idx].Progress = p
		c.Progress = gamification.CourseProgress(c.Lessons)
		lesson = c.Lessons[idx]
		progress = p
		return nil
	})
	if err != nil {
		return domain.LessonAdvance{}, err
	}

	result := domain.LessonAdvance{
		CourseID:       course.ID,
		LessonID:       lessonID,
		LessonProgress: progress,
		CourseProgress: course.Progress,
	}
	if page != lesson.PageCount()-1 {
		return result, nil
	}

	result.QuizScore = gamification.QuizScore(lesson.Quiz, answers)
	result.XPAwarded = result.QuizScore * gamification.XPPerCorrectAnswer
	user, err := s.AwardXP(ctx, uid, result.XPAwarded, "lesson:"+lessonID)
	if err != nil {
		s.log.WithField("uid", uid).WithError(err).Error("lesson xp not granted")
		return result, nil
	}
	s.record(ctx, domain.Activity{
		UserID: uid,
		Kind:   domain.ActivityLesson,
		XP:     result.XPAwarded,
		Metadata: map[string]string{
			"course": courseID,
			"lesson": lessonID,
			"score":  strconv.Itoa(result.QuizScore),
		},
	})

	counters, err := s.counters(ctx, user, progress == 100)
	if err != nil {
		s.log.WithField("uid", uid).WithError(err).Warn("badge counters unavailable")
		return result, nil
	}
	result.Badges = s.AwardBadges(ctx, user, counters)
	return result, nil
}

func (s *GamificationService) counters(ctx context.Context, user domain.User, lessonCompleted bool) (gamification.Counters, error) {
	courses, err := s.courses.ListByUser(ctx, user.ID)
	if err != nil {
		return gamification.Counters{}, fmt.Errorf("list courses: %w", err)
	}
	return gamification.Counters{
		Streak:               user.Streak,
		Days:                 user.Days,
		CompletedCourses:     gamification.CompletedCourses(courses),
		CustomCoursesCreated: user.CustomCoursesCreated,
		LessonCompleted:      lessonCompleted,
	}, nil
}

func (s *GamificationService) record(ctx context.Context, entry domain.Activity) {
	if s.activity == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock()
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{"uid": entry.UserID, "kind": entry.Kind}).WithError(err).Warn("activity not recorded")
	}
}

func (s *GamificationService) publish(ctx context.Context, ev domain.Event) {
	if s.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.clock()
	}
	s.events.Publish(ctx, ev)
}

// Activity returns the user's most recent ledger entries.
func (s *GamificationService) Activity(ctx context.Context, uid string, limit int) ([]domain.Activity, error) {
	if s.activity == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.activity.Recent(ctx, uid, limit)
}
