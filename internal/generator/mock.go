package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// MockClient returns canned but well-formed content for local development.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(_ context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	topic := topicFromPrompt(userPrompt)
	var payload any
	if systemPrompt == ChallengeSystemPrompt() {
		payload = mockChallenge(topic)
	} else {
		payload = mockCourse(topic, lessonCountFromPrompt(userPrompt))
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &LLMResponse{Content: string(raw), PromptTokens: len(userPrompt) / 4, OutputTokens: len(raw) / 4}, nil
}

func topicFromPrompt(prompt string) string {
	idx := strings.LastIndex(prompt, "Topic: ")
	if idx < 0 {
		return "General Knowledge"
	}
	return strings.TrimSpace(prompt[idx+len("Topic: "):])
}

func lessonCountFromPrompt(prompt string) int {
	for _, size := range []CourseSize{courseSizes[domain.CourseLong], courseSizes[domain.CourseMedium]} {
		if strings.Contains(prompt, fmt.Sprintf("Create a %d-lesson course", size.Lessons)) {
			return size.Lessons
		}
	}
	return courseSizes[domain.CourseShort].Lessons
}

func mockChallenge(topic string) domain.GeneratedChallenge {
	return domain.GeneratedChallenge{
		Question: fmt.Sprintf("Which statement best describes a first step in %s?", topic),
		Options: []string{
			"Learn the core vocabulary",
			"Skip the basics",
			"Memorize advanced edge cases",
			"Avoid practice",
		},
		Answer: "Learn the core vocabulary",
		Topic:  topic,
	}
}

func mockCourse(topic string, lessons int) domain.GeneratedCourse {
	course := domain.GeneratedCourse{Title: topic + " Essentials"}
	for i := 1; i <= lessons; i++ {
		course.Lessons = append(course.Lessons, domain.Lesson{
			ID:          fmt.Sprintf("lesson-%d", i),
			Title:       fmt.Sprintf("%s, part %d", topic, i),
			Description: fmt.Sprintf("Key ideas of %s, step %d.", topic, i),
			Duration:    "5 min",
			Content: []domain.Section{
				{Subtitle: "Overview", Explain: fmt.Sprintf("This part introduces %s.", topic)},
				{Subtitle: "Practice", Explain: "Apply the idea to a simple everyday example."},
				{Subtitle: "Recap", Explain: "Summarize what you learned in one sentence."},
			},
			Quiz: &domain.Quiz{Questions: []domain.QuizQuestion{{
				Question: fmt.Sprintf("What does part %d focus on?", i),
				Options:  []string{"Key ideas", "Unrelated trivia", "Nothing", "Advanced proofs"},
				Answer:   "Key ideas",
			}}},
		})
	}
	return course
}
