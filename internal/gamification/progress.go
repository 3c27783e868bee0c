package gamification

import (
	"math"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// XPPerCorrectAnswer is granted for each correct answer on a lesson's final quiz.
const XPPerCorrectAnswer = 10

// LessonProgress returns the progress percentage after visiting page (0-based).
// The last page always yields 100.
func LessonProgress(page, totalPages int) (int, error) {
	if totalPages <= 0 || page < 0 || page >= totalPages {
		return 0, domain.ErrInvalidPage
	}
	if page == totalPages-1 {
		return 100, nil
	}
	return int(math.Round(float64(page+1) / float64(totalPages) * 100)), nil
}

// CourseProgress is the rounded mean of lesson progress values.
func CourseProgress(lessons []domain.Lesson) int {
	if len(lessons) == 0 {
		return 0
	}
	sum := 0
	for _, l := range lessons {
		sum += l.Progress
	}
	return int(math.Round(float64(sum) / float64(len(lessons))))
}

// QuizScore counts answers matching the quiz key, position by position.
func QuizScore(quiz *domain.Quiz, answers []string) int {
	if quiz == nil {
		return 0
	}
	score := 0
	for i, q := range quiz.Questions {
		if i >= len(answers) {
			break
		}
		if strings.TrimSpace(answers[i]) == strings.TrimSpace(q.Answer) {
			score++
		}
	}
	return score
}

// CompletedCourses counts courses at 100% progress.
func CompletedCourses(courses []domain.Course) int {
	n := 0
	for _, c := range courses {
		if c.Progress >= 100 {
			n++
		}
	}
	return n
}
