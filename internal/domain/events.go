package domain

import "time"

// EventType names a presentation event pushed to connected clients.
type EventType string

const (
	EventLevelUp           EventType = "level_up"
	EventBadgeEarned       EventType = "badge_earned"
	EventStreakReminder    EventType = "streak_reminder"
	EventChallengeAnswered EventType = "challenge_answered"
)

// Event is delivered to every live subscriber of UserID.
type Event struct {
	Type    EventType `json:"type"`
	UserID  string    `json:"userId"`
	Level   int       `json:"level,omitempty"`
	Badge   string    `json:"badge,omitempty"`
	XP      int       `json:"xp,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
