package domain

import "errors"

var (
	// ErrUserNotFound is returned when no user record exists for an id.
	ErrUserNotFound = errors.New("user not found")
	// ErrCourseNotFound is returned when a course does not exist or belongs to someone else.
	ErrCourseNotFound = errors.New("course not found")
	// ErrLessonNotFound indicates a lesson id is not part of the course.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrChallengeNotFound indicates no daily challenge was generated for the day yet.
	ErrChallengeNotFound = errors.New("daily challenge not found")
	// ErrChallengeCompleted is returned when a second answer is submitted for the same day.
	ErrChallengeCompleted = errors.New("daily challenge already answered")
	// ErrInvalidPage indicates a page index outside the lesson.
	ErrInvalidPage = errors.New("invalid lesson page")
	// ErrNegativeXP rejects XP decrements.
	ErrNegativeXP = errors.New("xp delta must not be negative")
	// ErrConflict is returned when a compare-and-swap update keeps losing the race.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrEmptyTopic rejects course requests without a topic.
	ErrEmptyTopic = errors.New("topic is required")
	// ErrMissingFields rejects signup requests with blank fields.
	ErrMissingFields = errors.New("email, display name and password are required")
	// ErrWeakPassword rejects passwords shorter than the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidReminderTime rejects reminder times not in HH:MM form.
	ErrInvalidReminderTime = errors.New("reminder time must be HH:MM")

	// ErrCourseLimitReached is returned when a free user already created a course.
	ErrCourseLimitReached = errors.New("course limit reached, subscribe to create more courses")
	// ErrActiveCourseLimit is returned when the user already has the maximum number of active courses.
	ErrActiveCourseLimit = errors.New("active course limit reached")

	// ErrGenerationFailed wraps AI generation failures surfaced to callers.
	ErrGenerationFailed = errors.New("content generation failed")
)
