package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// DefaultReminderTime is used when reminders are enabled without a time.
const DefaultReminderTime = "20:00"

// Settings is a partial update of the user's preferences.
type Settings struct {
	Language        *string `json:"language,omitempty"`
	DisplayName     *string `json:"displayName,omitempty"`
	PhotoURL        *string `json:"photoURL,omitempty"`
	ReminderEnabled *bool   `json:"reminderEnabled,omitempty"`
	ReminderTime    *string `json:"reminderTime,omitempty"`
}

// SettingsService updates preferences and keeps reminder jobs in sync with them.
type SettingsService struct {
	users     UserRepository
	reminders ReminderScheduler
}

func NewSettingsService(users UserRepository, reminders ReminderScheduler) *SettingsService {
	return &SettingsService{users: users, reminders: reminders}
}

// Update applies the non-nil fields of in.
func (s *SettingsService) Update(ctx context.Context, uid string, in Settings) (domain.User, error) {
	if in.ReminderTime != nil {
		if _, _, err := ParseReminderTime(*in.ReminderTime); err != nil {
			return domain.User{}, err
		}
	}
	user, err := s.users.Update(ctx, uid, func(u *domain.User) error {
		if in.Language != nil {
			u.Language = strings.TrimSpace(*in.Language)
		}
		if in.DisplayName != nil {
			u.DisplayName = strings.TrimSpace(*in.DisplayName)
		}
		if in.PhotoURL != nil {
			u.PhotoURL = *in.PhotoURL
		}
		if in.ReminderEnabled != nil {
			u.ReminderEnabled = *in.ReminderEnabled
		}
		if in.ReminderTime != nil {
			u.ReminderTime = *in.ReminderTime
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if err := s.Arm(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Arm schedules or cancels the user's streak reminder according to the stored preferences.
func (s *SettingsService) Arm(user domain.User) error {
	if s.reminders == nil {
		return nil
	}
	s.reminders.CancelAll(user.ID)
	if !user.ReminderEnabled {
		return nil
	}
	at := user.ReminderTime
	if at == "" {
		at = DefaultReminderTime
	}
	hour, minute, err := ParseReminderTime(at)
	if err != nil {
		return err
	}
	return s.reminders.Schedule(user.ID, hour, minute)
}

// ParseReminderTime parses "HH:MM" in 24h form.
func ParseReminderTime(raw string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, domain.ErrInvalidReminderTime
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour %q", domain.ErrInvalidReminderTime, parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", domain.ErrInvalidReminderTime, parts[1])
	}
	return hour, minute, nil
}
