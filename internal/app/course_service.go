package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/sirupsen/logrus"
)

// CoursePolicy holds the course creation limits.
type CoursePolicy struct {
	PresetTopics     []string
	MaxActiveCourses int
	FreeCourseLimit  int
	SubscriptionTerm time.Duration
	DefaultLanguage  string
}

// DefaultCoursePolicy matches the app's built-in topic picker.
func DefaultCoursePolicy() CoursePolicy {
	return CoursePolicy{
		PresetTopics:     []string{"Investing", "Mental Health", "Relationships"},
		MaxActiveCourses: 3,
		FreeCourseLimit:  1,
		SubscriptionTerm: 30 * 24 * time.Hour,
		DefaultLanguage:  "en",
	}
}

// CourseService creates and lists generated courses.
type CourseService struct {
	courses   CourseRepository
	users     UserRepository
	generator CourseGenerator
	game      *GamificationService
	policy    CoursePolicy
	clock     Clock
	log       *logrus.Entry
}

func NewCourseService(courses CourseRepository, users UserRepository, generator CourseGenerator, game *GamificationService, policy CoursePolicy, clock Clock) *CourseService {
	if clock == nil {
		clock = ClockIn(nil)
	}
	return &CourseService{
		courses:   courses,
		users:     users,
		generator: generator,
		game:      game,
		policy:    policy,
		clock:     clock,
		log:       logrus.WithField("component", "course"),
	}
}

// Open returns the user's course for a topic, generating it when it does not exist yet.
// created reports whether a new course was generated.
func (s *CourseService) Open(ctx context.Context, uid string, req domain.CourseRequest) (course domain.Course, created bool, err error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return domain.Course{}, false, domain.ErrEmptyTopic
	}
	req.Topic = topic
	req.Length = domain.ParseCourseLength(string(req.Length))

	if existing, err := s.courses.Get(ctx, domain.CourseID(uid, topic)); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrCourseNotFound) {
		return domain.Course{}, false, err
	}

	user, err := s.users.Get(ctx, uid)
	if err != nil {
		return domain.Course{}, false, err
	}
	if req.Language == "" {
		req.Language = user.Language
	}
	if req.Language == "" {
		req.Language = s.policy.DefaultLanguage
	}
	if err := s.checkLimits(ctx, user); err != nil {
		return domain.Course{}, false, err
	}

	generated, err := s.generator.GenerateCourse(ctx, req)
	if err != nil {
		s.log.WithFields(logrus.Fields{"uid": uid, "topic": topic}).WithError(err).Error("course generation failed")
		return domain.Course{}, false, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	title := strings.TrimSpace(generated.Title)
	if title == "" {
		title = topic
	}
	id := domain.CourseID(uid, title)
	if existing, err := s.courses.Get(ctx, id); err == nil {
		return existing, false, nil
	}

	custom := s.isCustomTopic(topic)
	course = domain.Course{
		ID:        id,
		UserID:    uid,
		Title:     title,
		Topic:     topic,
		Length:    req.Length,
		Language:  req.Language,
		Custom:    custom,
		Lessons:   normalizeLessons(generated.Lessons),
		Progress:  0,
		CreatedAt: s.clock(),
	}
	if err := s.courses.Save(ctx, course); err != nil {
		return domain.Course{}, false, fmt.Errorf("save course: %w", err)
	}

	if _, err := s.users.Update(ctx, uid, func(u *domain.User) error {
		u.CoursesCreated++
		if custom {
			u.CustomCoursesCreated++
		}
		return nil
	}); err != nil {
		s.log.WithField("uid", uid).WithError(err).Error("course counters not updated")
	}

	if s.game != nil {
		s.game.record(ctx, domain.Activity{
			UserID:   uid,
			Kind:     domain.ActivityCourse,
			Metadata: map[string]string{"course": id, "topic": topic},
		})
		if _, err := s.game.SyncBadges(ctx, uid); err != nil {
			s.log.WithField("uid", uid).WithError(err).Warn("badge sync failed")
		}
	}
	s.log.WithFields(logrus.Fields{"uid": uid, "course": id, "custom": custom}).Info("course created")
	return course, true, nil
}

// checkLimits enforces the active-course cap and the free tier. An expired
// subscription is moved to "end"; the request that notices it still goes through.
func (s *CourseService) checkLimits(ctx context.Context, user domain.User) error {
	courses, err := s.courses.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	active := 0
	for _, c := range courses {
		if c.Progress < 100 {
			active++
		}
	}
	if s.policy.MaxActiveCourses > 0 && active >= s.policy.MaxActiveCourses {
		s.log.WithField("uid", user.ID).Info("active course limit reached")
		return domain.ErrActiveCourseLimit
	}

	if user.SubscriptionStatus == domain.SubscriptionActive && s.subscriptionExpired(user) {
		if _, err := s.users.Update(ctx, user.ID, func(u *domain.User) error {
			u.SubscriptionStatus = domain.SubscriptionEnd
			return nil
		}); err != nil {
			return fmt.Errorf("expire subscription: %w", err)
		}
		return nil
	}

	limit := s.policy.FreeCourseLimit
	if !user.Premium() && user.CoursesCreated >= limit {
		s.log.WithField("uid", user.ID).Info("free course limit reached")
		return domain.ErrCourseLimitReached
	}
	return nil
}

func (s *CourseService) subscriptionExpired(user domain.User) bool {
	if user.LastSubscriptionTime == nil || s.policy.SubscriptionTerm <= 0 {
		return false
	}
	return s.clock().Sub(*user.LastSubscriptionTime) > s.policy.SubscriptionTerm
}

func (s *CourseService) isCustomTopic(topic string) bool {
	for _, preset := range s.policy.PresetTopics {
		if strings.EqualFold(preset, topic) {
			return false
		}
	}
	return true
}

// List returns the user's courses and re-syncs course-based badges.
func (s *CourseService) List(ctx context.Context, uid string) ([]domain.Course, error) {
	courses, err := s.courses.ListByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if s.game != nil && gamification.CompletedCourses(courses) > 0 {
		if _, err := s.game.SyncBadges(ctx, uid); err != nil {
			s.log.WithField("uid", uid).WithError(err).Warn("badge sync failed")
		}
	}
	return courses, nil
}

// Get returns one of the user's courses.
func (s *CourseService) Get(ctx context.Context, uid, id string) (domain.Course, error) {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}
	if course.UserID != uid {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

// Remove deletes one of the user's courses.
func (s *CourseService) Remove(ctx context.Context, uid, id string) error {
	if _, err := s.Get(ctx, uid, id); err != nil {
		return err
	}
	return s.courses.Delete(ctx, id)
}

// normalizeLessons resets progress and fills in missing lesson ids.
func normalizeLessons(lessons []domain.Lesson) []domain.Lesson {
	out := make([]domain.Lesson, len(lessons))
	seen := make(map[string]int, len(lessons))
	for i, l := range lessons {
		l.Progress = 0
		if strings.TrimSpace(l.ID) == "" {
			l.ID = slug.Make(l.Title)
			if l.ID == "" {
				l.ID = fmt.Sprintf("lesson-%d", i+1)
			}
		}
		if n := seen[l.ID]; n > 0 {
			seen[l.ID] = n + 1
			l.ID = fmt.Sprintf("%s-%d", l.ID, n+1)
		} else {
			seen[l.ID] = 1
		}
		out[i] = l
	}
	return out
}
