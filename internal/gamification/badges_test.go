package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogOrder(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 6)
	slugs := make([]string, len(catalog))
	for i, b := range catalog {
		slugs[i] = b.Slug
	}
	assert.Equal(t, []string{
		BadgeFirstLesson, BadgeStreakStarter, BadgeSuperLearner,
		BadgeCuriousMind, BadgeDedicated, BadgeWeekOne,
	}, slugs)
}

func TestQualifiedThresholds(t *testing.T) {
	tests := []struct {
		name string
		in   Counters
		want []string
	}{
		{"nothing", Counters{Streak: 2, Days: 6, CompletedCourses: 4, CustomCoursesCreated: 2}, nil},
		{"lesson", Counters{LessonCompleted: true}, []string{BadgeFirstLesson}},
		{"streak three", Counters{Streak: 3, Days: 3}, []string{BadgeStreakStarter}},
		{"streak seven", Counters{Streak: 7, Days: 7}, []string{BadgeStreakStarter, BadgeDedicated, BadgeWeekOne}},
		{"days only", Counters{Days: 7}, []string{BadgeWeekOne}},
		{"courses", Counters{CompletedCourses: 5, CustomCoursesCreated: 3}, []string{BadgeSuperLearner, BadgeCuriousMind}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualified(tt.in))
		})
	}
}

func TestNewlyEarnedSkipsOwned(t *testing.T) {
	c := Counters{Streak: 7, Days: 7}
	got := NewlyEarned(c, []string{BadgeStreakStarter, BadgeWeekOne})
	assert.Equal(t, []string{BadgeDedicated}, got)
	assert.Empty(t, NewlyEarned(c, Qualified(c)))
}

func TestLookup(t *testing.T) {
	def, ok := Lookup(BadgeCuriousMind)
	require.True(t, ok)
	assert.Equal(t, "curiousMind", def.Key)
	_, ok = Lookup("unknown")
	assert.False(t, ok)
}
