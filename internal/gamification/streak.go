package gamification

import "time"

// DateLayout is the calendar-day format used for lastCompleted and challenge ids.
const DateLayout = "2006-01-02"

// DateString formats t as a calendar day in t's own location.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// Yesterday returns the calendar day before t, in t's location.
func Yesterday(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, t.Location()).Format(DateLayout)
}

// StreakState is the slice of a user record the streak engine reads and writes.
type StreakState struct {
	Streak        int
	Days          int
	LastCompleted string
}

// NextStreak returns the streak after a correct answer on today.
func NextStreak(current int, lastCompleted string, today time.Time) int {
	switch lastCompleted {
	case Yesterday(today):
		return current + 1
	case DateString(today):
		if current < 1 {
			return 1
		}
		return current
	default:
		return 1
	}
}

// ApplyAnswer folds one daily challenge answer into the streak state.
// A wrong answer resets the streak; every answer counts as an active day.
func ApplyAnswer(s StreakState, today time.Time, correct bool) StreakState {
	next := StreakState{
		Days:          s.Days + 1,
		LastCompleted: DateString(today),
	}
	if correct {
		next.Streak = NextStreak(s.Streak, s.LastCompleted, today)
	}
	return next
}
