package gamification

import (
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

const (
	ComplexTopicReward = 75
	SimpleTopicReward  = 50
	FallbackReward     = 30
	FallbackTopic      = "General Knowledge"
)

// ChallengeReward grants more XP for topics longer than two words.
func ChallengeReward(topic string) int {
	if len(strings.Fields(topic)) > 2 {
		return ComplexTopicReward
	}
	return SimpleTopicReward
}

// FallbackChallenge is served when no personalized question can be produced.
func FallbackChallenge() domain.GeneratedChallenge {
	return domain.GeneratedChallenge{
		Question: "What is the capital of France?",
		Options:  []string{"London", "Paris", "Berlin", "Madrid"},
		Answer:   "Paris",
		Topic:    FallbackTopic,
	}
}
