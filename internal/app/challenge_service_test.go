package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayWithoutCoursesServesFallback(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})

	c, err := f.challenge.Today(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1_2024-01-01", c.ID)
	assert.Equal(t, "Paris", c.Answer)
	assert.Equal(t, 30, c.Reward)
	assert.True(t, c.Fallback)
	assert.Equal(t, domain.ChallengeGenerated, c.State())
	assert.Zero(t, f.chGen.Calls())
}

func TestTodayGeneratesOncePerDay(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	f.addCourse(t, "u1", "20th Century European History", 0)

	first, err := f.challenge.Today(context.Background(), "u1")
	require.NoError(t, err)
	second, err := f.challenge.Today(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.chGen.Calls())
	assert.Equal(t, 75, first.Reward)
	assert.Equal(t, "20th Century European History", first.Topic)
}

func TestTodayConcurrentCallersShareOneChallenge(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	f.addCourse(t, "u1", "Investing", 0)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.challenge.Today(context.Background(), "u1")
			if err == nil {
				ids[i] = c.Question
			}
		}(i)
	}
	wg.Wait()

	for _, q := range ids {
		assert.Equal(t, ids[0], q)
	}
	assert.Equal(t, 1, f.challenges.Count())
}

func TestTodayGeneratorFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	f.addCourse(t, "u1", "Mental Health", 0)
	f.chGen.err = errBoom

	c, err := f.challenge.Today(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, c.Fallback)
	assert.Equal(t, gamification.FallbackTopic, c.Topic)
}

func TestSubmitCorrectAnswer(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	f.addCourse(t, "u1", "Mental Health", 0)
	ctx := context.Background()

	c, err := f.challenge.Today(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 50, c.Reward)

	res, err := f.challenge.Submit(ctx, "u1", c.Answer)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 50, res.XPAwarded)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 1, res.Days)

	stored, err := f.challenges.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeAnswered, stored.State())

	user, _ := f.users.Get(ctx, "u1")
	assert.Equal(t, 50, user.XP)
	assert.Equal(t, "2024-01-01", user.LastCompleted)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	ctx := context.Background()

	c, err := f.challenge.Today(ctx, "u1")
	require.NoError(t, err)
	_, err = f.challenge.Submit(ctx, "u1", c.Answer)
	require.NoError(t, err)

	_, err = f.challenge.Submit(ctx, "u1", c.Answer)
	assert.ErrorIs(t, err, domain.ErrChallengeCompleted)

	user, _ := f.users.Get(ctx, "u1")
	assert.Equal(t, 30, user.XP)
	assert.Equal(t, 1, user.Days)
}

// conflictingUsers fails the next failures calls to Update with ErrConflict.
type conflictingUsers struct {
	app.UserRepository
	mu       sync.Mutex
	failures int
}

func (u *conflictingUsers) Update(ctx context.Context, uid string, fn func(*domain.User) error) (domain.User, error) {
	u.mu.Lock()
	if u.failures > 0 {
		u.failures--
		u.mu.Unlock()
		return domain.User{}, domain.ErrConflict
	}
	u.mu.Unlock()
	return u.UserRepository.Update(ctx, uid, fn)
}

func TestSubmitRetriesAfterFailedUserWrite(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	ctx := context.Background()
	users := &conflictingUsers{UserRepository: f.users, failures: 1}
	svc := app.NewChallengeService(f.challenges, f.courses, users, f.chGen, f.game, f.clock.Now)

	c, err := svc.Today(ctx, "u1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "u1", c.Answer)
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.challenges.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeGenerated, stored.State())

	res, err := svc.Submit(ctx, "u1", c.Answer)
	require.NoError(t, err)
	assert.Equal(t, c.Reward, res.XPAwarded)

	user, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c.Reward, user.XP)
	assert.Equal(t, 1, user.Streak)
	assert.Equal(t, 1, user.Days)
}

func TestSubmitConcurrentAnswersGrantOnce(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	ctx := context.Background()
	c, err := f.challenge.Today(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.challenge.Submit(ctx, "u1", c.Answer)
		}()
	}
	wg.Wait()

	user, _ := f.users.Get(ctx, "u1")
	assert.Equal(t, c.Reward, user.XP)
	assert.Equal(t, 1, user.Days)
}

func TestSubmitWithoutChallenge(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	_, err := f.challenge.Submit(context.Background(), "u1", "Paris")
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestSubmitWrongAnswerResetsStreak(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1", Streak: 4, Days: 4, LastCompleted: "2023-12-31"})
	ctx := context.Background()
	_, err := f.challenge.Today(ctx, "u1")
	require.NoError(t, err)

	res, err := f.challenge.Submit(ctx, "u1", "London")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "Paris", res.Answer)
	assert.Zero(t, res.XPAwarded)
	assert.Zero(t, res.Streak)
	assert.Equal(t, 5, res.Days)
}

func TestSevenConsecutiveDays(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	f.addCourse(t, "u1", "Investing", 0)
	ctx := context.Background()
	events, cancel := f.hub.Subscribe("u1")
	defer cancel()

	total := 0
	for day := 0; day < 7; day++ {
		c, err := f.challenge.Today(ctx, "u1")
		require.NoError(t, err)
		_, err = f.challenge.Submit(ctx, "u1", c.Answer)
		require.NoError(t, err)
		total += c.Reward
		f.clock.AddDays(1)
	}

	user, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, user.Streak)
	assert.Equal(t, 7, user.Days)
	assert.Equal(t, total, user.XP)
	assert.ElementsMatch(t, []string{
		gamification.BadgeStreakStarter, gamification.BadgeDedicated, gamification.BadgeWeekOne,
	}, user.Badges)

	badgeEvents := 0
	for _, ev := range drain(events) {
		if ev.Type == domain.EventBadgeEarned {
			badgeEvents++
		}
	}
	assert.Equal(t, 3, badgeEvents)
}
