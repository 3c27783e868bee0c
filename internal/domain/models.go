package domain

import (
	"strings"
	"time"
)

// SubscriptionStatus mirrors the billing provider's subscription lifecycle.
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionEnd      SubscriptionStatus = "end"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// User is the per-user gamification and account record.
type User struct {
	ID                   string             `json:"id" bson:"_id"`
	Email                string             `json:"email" bson:"email"`
	DisplayName          string             `json:"displayName" bson:"displayName"`
	PhotoURL             string             `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	PasswordHash         string             `json:"-" bson:"passwordHash,omitempty"`
	XP                   int                `json:"xp" bson:"xp"`
	Level                int                `json:"level" bson:"level"`
	Streak               int                `json:"streak" bson:"streak"`
	LastCompleted        string             `json:"lastCompleted,omitempty" bson:"lastCompleted,omitempty"`
	Days                 int                `json:"days" bson:"days"`
	Badges               []string           `json:"badges" bson:"badges"`
	CoursesCreated       int                `json:"coursesCreated" bson:"coursesCreated"`
	CustomCoursesCreated int                `json:"customeCoursesCreated" bson:"customeCoursesCreated"`
	CoursesLimit         int                `json:"coursesLimit" bson:"coursesLimit"`
	SubscriptionStatus   SubscriptionStatus `json:"subscriptionStatus" bson:"subscriptionStatus"`
	SubscriptionID       string             `json:"subscriptionId,omitempty" bson:"subscriptionId,omitempty"`
	CustomerID           string             `json:"customerId,omitempty" bson:"customerId,omitempty"`
	LastSubscriptionTime *time.Time         `json:"lastSubscriptionTime,omitempty" bson:"lastSubscriptionTime,omitempty"`
	Language             string             `json:"language" bson:"language"`
	ReminderEnabled      bool               `json:"reminderEnabled" bson:"reminderEnabled"`
	ReminderTime         string             `json:"reminderTime,omitempty" bson:"reminderTime,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	Version              int64              `json:"-" bson:"version"`
}

// HasBadge reports whether slug is already in the user's badge set.
func (u User) HasBadge(slug string) bool {
	for _, b := range u.Badges {
		if b == slug {
			return true
		}
	}
	return false
}

// Premium reports whether the user currently holds a paying subscription.
func (u User) Premium() bool {
	return u.SubscriptionStatus == SubscriptionActive
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	out := u
	out.Badges = append([]string(nil), u.Badges...)
	if u.LastSubscriptionTime != nil {
		t := *u.LastSubscriptionTime
		out.LastSubscriptionTime = &t
	}
	return out
}

// CourseLength selects the size tier used when generating a course.
type CourseLength string

const (
	CourseShort  CourseLength = "short"
	CourseMedium CourseLength = "medium"
	CourseLong   CourseLength = "long"
)

// ParseCourseLength maps free text onto a tier, defaulting to short.
func ParseCourseLength(raw string) CourseLength {
	switch CourseLength(strings.ToLower(strings.TrimSpace(raw))) {
	case CourseMedium:
		return CourseMedium
	case CourseLong:
		return CourseLong
	default:
		return CourseShort
	}
}

// Section is one explanatory page of a lesson.
type Section struct {
	Subtitle string `json:"subtitle" bson:"subtitle"`
	Explain  string `json:"explain" bson:"explain"`
}

// QuizQuestion is a four-option multiple choice question.
type QuizQuestion struct {
	Question string   `json:"question" bson:"question"`
	Options  []string `json:"options" bson:"options"`
	Answer   string   `json:"answer" bson:"answer"`
}

// Quiz closes a lesson.
type Quiz struct {
	Questions []QuizQuestion `json:"questions" bson:"questions"`
}

// Lesson is embedded in its course.
type Lesson struct {
	ID          string    `json:"id" bson:"id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Duration    string    `json:"duration" bson:"duration"`
	Content     []Section `json:"content" bson:"content"`
	Quiz        *Quiz     `json:"quiz,omitempty" bson:"quiz,omitempty"`
	Progress    int       `json:"progress" bson:"progress"`
}

// PageCount is the number of pages a learner steps through: every section plus the quiz page.
func (l Lesson) PageCount() int {
	n := len(l.Content)
	if l.Quiz != nil && len(l.Quiz.Questions) > 0 {
		n++
	}
	return n
}

// Complete reports whether the lesson has been read to the end.
func (l Lesson) Complete() bool {
	return l.Progress == 100
}

// Course is an AI-generated course owned by one user.
type Course struct {
	ID        string       `json:"id" bson:"_id"`
	UserID    string       `json:"userId" bson:"userId"`
	Title     string       `json:"title" bson:"title"`
	Topic     string       `json:"topic" bson:"topic"`
	Length    CourseLength `json:"length" bson:"length"`
	Language  string       `json:"language" bson:"language"`
	Custom    bool         `json:"custom" bson:"custom"`
	Lessons   []Lesson     `json:"lessons" bson:"lessons"`
	Progress  int          `json:"progress" bson:"progress"`
	CreatedAt time.Time    `json:"createdAt" bson:"createdAt"`
	Version   int64        `json:"-" bson:"version"`
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	out := c
	out.Lessons = make([]Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		l.Content = append([]Section(nil), l.Content...)
		if l.Quiz != nil {
			q := Quiz{Questions: make([]QuizQuestion, len(l.Quiz.Questions))}
			for j, qq := range l.Quiz.Questions {
				qq.Options = append([]string(nil), qq.Options...)
				q.Questions[j] = qq
			}
			l.Quiz = &q
		}
		out.Lessons[i] = l
	}
	return out
}

// LessonIndex returns the position of lessonID, or -1.
func (c Course) LessonIndex(lessonID string) int {
	for i := range c.Lessons {
		if c.Lessons[i].ID == lessonID {
			return i
		}
	}
	return -1
}

// CourseID derives the document id of a user's course.
func CourseID(uid, title string) string {
	return uid + "_" + title
}

// CourseRequest asks for a new course.
type CourseRequest struct {
	Topic    string       `json:"topic"`
	Length   CourseLength `json:"length"`
	Language string       `json:"language"`
}

// GeneratedCourse is the validated output of the course generator.
type GeneratedCourse struct {
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// GeneratedChallenge is the validated output of the challenge generator.
type GeneratedChallenge struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Topic    string   `json:"topic"`
}

// ChallengeState is the per-user per-day lifecycle of a daily challenge.
type ChallengeState string

const (
	ChallengeAbsent    ChallengeState = "ABSENT"
	ChallengeGenerated ChallengeState = "GENERATED"
	ChallengeAnswered  ChallengeState = "ANSWERED"
)

// DailyChallenge is one question per user per calendar day.
type DailyChallenge struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	Date      string    `json:"date" bson:"date"`
	Question  string    `json:"question" bson:"question"`
	Options   []string  `json:"options" bson:"options"`
	Answer    string    `json:"answer" bson:"answer"`
	Reward    int       `json:"reward" bson:"reward"`
	Completed bool      `json:"completed" bson:"completed"`
	Topic     string    `json:"topic" bson:"topic"`
	Fallback  bool      `json:"fallback,omitempty" bson:"fallback,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// State reports where the challenge sits in its daily lifecycle.
func (c *DailyChallenge) State() ChallengeState {
	switch {
	case c == nil:
		return ChallengeAbsent
	case c.Completed:
		return ChallengeAnswered
	default:
		return ChallengeGenerated
	}
}

// ChallengeID derives the document id of a user's challenge for a date.
func ChallengeID(uid, date string) string {
	return uid + "_" + date
}

// ChallengeResult summarizes an answered challenge.
type ChallengeResult struct {
	ChallengeID string   `json:"challengeId"`
	Correct     bool     `json:"correct"`
	Answer      string   `json:"answer"`
	XPAwarded   int      `json:"xpAwarded"`
	XP          int      `json:"xp"`
	Level       int      `json:"level"`
	Streak      int      `json:"streak"`
	Days        int      `json:"days"`
	Badges      []string `json:"badges"`
}

// LessonAdvance summarizes the effect of moving to a lesson page.
type LessonAdvance struct {
	CourseID       string   `json:"courseId"`
	LessonID       string   `json:"lessonId"`
	LessonProgress int      `json:"lessonProgress"`
	CourseProgress int      `json:"courseProgress"`
	QuizScore      int      `json:"quizScore"`
	XPAwarded      int      `json:"xpAwarded"`
	Badges         []string `json:"badges"`
}

// ActivityKind labels entries in the activity ledger.
type ActivityKind string

const (
	ActivityXP        ActivityKind = "xp"
	ActivityBadge     ActivityKind = "badge"
	ActivityChallenge ActivityKind = "challenge"
	ActivityLesson    ActivityKind = "lesson"
	ActivityCourse    ActivityKind = "course"
)

// Activity is an append-only record of a gamification event.
type Activity struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Kind      ActivityKind      `json:"kind"`
	XP        int               `json:"xp,omitempty"`
	Badge     string            `json:"badge,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
