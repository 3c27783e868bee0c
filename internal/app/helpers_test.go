package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(date string) *fakeClock {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return &fakeClock{now: t.Add(10 * time.Hour)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type stubChallengeGenerator struct {
	mu     sync.Mutex
	calls  int
	err    error
	result domain.GeneratedChallenge
}

func (g *stubChallengeGenerator) GenerateChallenge(_ context.Context, topic string) (domain.GeneratedChallenge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return domain.GeneratedChallenge{}, g.err
	}
	out := g.result
	if out.Question == "" {
		out = domain.GeneratedChallenge{
			Question: "Which asset class is usually the most volatile?",
			Options:  []string{"Bonds", "Cash", "Stocks", "Savings"},
			Answer:   "Stocks",
			Topic:    topic,
		}
	}
	return out, nil
}

func (g *stubChallengeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubCourseGenerator struct {
	calls int
	err   error
	title string
}

func (g *stubCourseGenerator) GenerateCourse(_ context.Context, req domain.CourseRequest) (domain.GeneratedCourse, error) {
	g.calls++
	if g.err != nil {
		return domain.GeneratedCourse{}, g.err
	}
	title := g.title
	if title == "" {
		title = req.Topic
	}
	return domain.GeneratedCourse{Title: title, Lessons: sampleLessons()}, nil
}

func sampleLessons() []domain.Lesson {
	return []domain.Lesson{
		{
			ID:    "l1",
			Title: "Basics",
			Content: []domain.Section{
				{Subtitle: "One", Explain: "..."},
				{Subtitle: "Two", Explain: "..."},
			},
			Quiz: &domain.Quiz{Questions: []domain.QuizQuestion{
				{Question: "q1", Options: []string{"a", "b", "c", "d"}, Answer: "a"},
				{Question: "q2", Options: []string{"a", "b", "c", "d"}, Answer: "c"},
			}},
			Progress: 40,
		},
		{
			Title:   "Next Steps",
			Content: []domain.Section{{Subtitle: "Only", Explain: "..."}},
		},
	}
}

type fixture struct {
	clock      *fakeClock
	users      *memory.UserStore
	courses    *memory.CourseStore
	challenges *memory.ChallengeStore
	activity   *memory.ActivityLog
	hub        *app.Hub
	game       *app.GamificationService
	challenge  *app.ChallengeService
	course     *app.CourseService
	chGen      *stubChallengeGenerator
	coGen      *stubCourseGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:      newFakeClock("2024-01-01"),
		users:      memory.NewUserStore(),
		courses:    memory.NewCourseStore(),
		challenges: memory.NewChallengeStore(),
		activity:   memory.NewActivityLog(),
		hub:        app.NewHub(),
		chGen:      &stubChallengeGenerator{},
		coGen:      &stubCourseGenerator{},
	}
	f.game = app.NewGamificationService(f.users, f.courses, f.activity, f.hub, f.clock.Now)
	f.challenge = app.NewChallengeService(f.challenges, f.courses, f.users, f.chGen, f.game, f.clock.Now)
	f.course = app.NewCourseService(f.courses, f.users, f.coGen, f.game, app.DefaultCoursePolicy(), f.clock.Now)
	return f
}

func (f *fixture) addUser(t *testing.T, u domain.User) domain.User {
	t.Helper()
	if u.Level == 0 {
		u.Level = 1
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = domain.SubscriptionNone
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) addCourse(t *testing.T, uid, title string, progress int) domain.Course {
	t.Helper()
	c := domain.Course{
		ID:        domain.CourseID(uid, title),
		UserID:    uid,
		Title:     title,
		Lessons:   sampleLessons(),
		Progress:  progress,
		CreatedAt: f.clock.Now(),
	}
	c.Lessons[1].ID = "l2"
	if err := f.courses.Save(context.Background(), c); err != nil {
		t.Fatalf("save course: %v", err)
	}
	return c
}

func drain(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

var errBoom = errors.New("boom")
