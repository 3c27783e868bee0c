package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// ValidationError lists every problem found in a model response.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseCourse decodes and validates a course response.
func ParseCourse(responseBody string) (domain.GeneratedCourse, error) {
	var course domain.GeneratedCourse
	if err := json.Unmarshal([]byte(extractJSON(responseBody)), &course); err != nil {
		return domain.GeneratedCourse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	course.Title = strings.TrimSpace(course.Title)
	if err := validateCourse(&course); err != nil {
		return domain.GeneratedCourse{}, err
	}
	return course, nil
}

// ParseChallenge decodes and validates a daily challenge response.
func ParseChallenge(responseBody string) (domain.GeneratedChallenge, error) {
	var challenge domain.GeneratedChallenge
	if err := json.Unmarshal([]byte(extractJSON(responseBody)), &challenge); err != nil {
		return domain.GeneratedChallenge{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	challenge.Topic = strings.TrimSpace(challenge.Topic)

	var errs []string
	if strings.TrimSpace(challenge.Question) == "" {
		errs = append(errs, "question is empty")
	}
	if len(challenge.Options) != 4 {
		errs = append(errs, fmt.Sprintf("expected 4 options, got %d", len(challenge.Options)))
	}
	answer, ok := matchOption(challenge.Options, challenge.Answer)
	if !ok {
		errs = append(errs, fmt.Sprintf("answer %q is not one of the options", challenge.Answer))
	}
	if len(errs) > 0 {
		return domain.GeneratedChallenge{}, &ValidationError{Errors: errs}
	}
	challenge.Answer = answer
	return challenge, nil
}

func validateCourse(course *domain.GeneratedCourse) error {
	if len(course.Lessons) == 0 {
		return &ValidationError{Errors: []string{"no lessons in course"}}
	}

	var errs []string
	for i := range course.Lessons {
		lesson := &course.Lessons[i]
		n := i + 1
		if strings.TrimSpace(lesson.Title) == "" {
			errs = append(errs, fmt.Sprintf("lesson %d: missing title", n))
		}
		if len(lesson.Content) == 0 {
			errs = append(errs, fmt.Sprintf("lesson %d: no content sections", n))
		}
		if lesson.Quiz == nil {
			continue
		}
		for j := range lesson.Quiz.Questions {
			q := &lesson.Quiz.Questions[j]
			if len(q.Options) < 2 {
				errs = append(errs, fmt.Sprintf("lesson %d question %d: expected options, got %d", n, j+1, len(q.Options)))
				continue
			}
			answer, ok := matchOption(q.Options, q.Answer)
			if !ok {
				errs = append(errs, fmt.Sprintf("lesson %d question %d: answer %q is not one of the options", n, j+1, q.Answer))
				continue
			}
			q.Answer = answer
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// matchOption finds answer among options, ignoring case and surrounding space.
func matchOption(options []string, answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return opt, true
		}
	}
	return "", false
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(s string) string {
	s = stripCodeFences(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
