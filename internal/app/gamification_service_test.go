package app_test

import (
	"context"
	"testing"

	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceLessonMidway(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	course := f.addCourse(t, "u1", "Investing", 0)

	res, err := f.game.AdvanceLesson(context.Background(), "u1", course.ID, "l1", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 33, res.LessonProgress)
	assert.Equal(t, 17, res.CourseProgress)
	assert.Zero(t, res.XPAwarded)
	assert.Empty(t, res.Badges)
}

func TestAdvanceLessonFinalPageAwardsQuizXPAndBadge(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	course := f.addCourse(t, "u1", "Investing", 0)
	ctx := context.Background()
	events, cancel := f.hub.Subscribe("u1")
	defer cancel()

	res, err := f.game.AdvanceLesson(ctx, "u1", course.ID, "l1", 2, []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, 100, res.LessonProgress)
	assert.Equal(t, 50, res.CourseProgress)
	assert.Equal(t, 2, res.QuizScore)
	assert.Equal(t, 20, res.XPAwarded)
	assert.Equal(t, []string{gamification.BadgeFirstLesson}, res.Badges)

	stored, err := f.courses.Get(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Lessons[0].Progress)
	assert.Equal(t, 50, stored.Progress)

	user, _ := f.users.Get(ctx, "u1")
	assert.Equal(t, 20, user.XP)

	// repeating the lesson never awards the badge twice
	res, err = f.game.AdvanceLesson(ctx, "u1", course.ID, "l1", 2, []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, res.Badges)
	assert.Equal(t, 10, res.XPAwarded)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventBadgeEarned, got[0].Type)
	assert.Equal(t, gamification.BadgeFirstLesson, got[0].Badge)
}

func TestAdvanceLessonValidation(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	course := f.addCourse(t, "u1", "Investing", 0)
	ctx := context.Background()

	_, err := f.game.AdvanceLesson(ctx, "u1", course.ID, "missing", 0, nil)
	assert.ErrorIs(t, err, domain.ErrLessonNotFound)

	_, err = f.game.AdvanceLesson(ctx, "u1", course.ID, "l1", 3, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPage)

	_, err = f.game.AdvanceLesson(ctx, "intruder", course.ID, "l1", 0, nil)
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	_, err = f.game.AdvanceLesson(ctx, "u1", "nope", "l1", 0, nil)
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestAwardXPRejectsNegative(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1", XP: 10})
	_, err := f.game.AwardXP(context.Background(), "u1", -5, "test")
	assert.ErrorIs(t, err, domain.ErrNegativeXP)

	u, err := f.game.AwardXP(context.Background(), "u1", 0, "test")
	require.NoError(t, err)
	assert.Equal(t, 10, u.XP)
}

func TestSyncBadgesAwardsCourseBadges(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1", CustomCoursesCreated: 3})
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		f.addCourse(t, "u1", title, 100)
	}

	awarded, err := f.game.SyncBadges(context.Background(), "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{gamification.BadgeSuperLearner, gamification.BadgeCuriousMind}, awarded)

	awarded, err = f.game.SyncBadges(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestActivityIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, domain.User{ID: "u1"})
	ctx := context.Background()
	_, err := f.game.AwardXP(ctx, "u1", 25, "bonus")
	require.NoError(t, err)

	entries, err := f.game.Activity(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityXP, entries[0].Kind)
	assert.Equal(t, 25, entries[0].XP)
	assert.NotEmpty(t, entries[0].ID)
}
