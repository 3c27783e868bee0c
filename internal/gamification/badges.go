package gamification

// Badge slugs. Slugs are stored on the user record and never change.
const (
	BadgeFirstLesson   = "first-lesson"
	BadgeStreakStarter = "streak-starter"
	BadgeSuperLearner  = "super-learner"
	BadgeCuriousMind   = "curious-mind"
	BadgeDedicated     = "dedicated"
	BadgeWeekOne       = "week-one"
)

const (
	streakStarterDays   = 3
	dedicatedDays       = 7
	weekOneDays         = 7
	superLearnerCourses = 5
	curiousMindCourses  = 3
)

// BadgeDef describes one entry of the badge catalog.
type BadgeDef struct {
	Slug        string `json:"slug"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Counters is the state the badge rules are evaluated against.
type Counters struct {
	Streak               int
	Days                 int
	CompletedCourses     int
	CustomCoursesCreated int
	LessonCompleted      bool
}

type badgeRule struct {
	def       BadgeDef
	qualifies func(Counters) bool
}

var rules = []badgeRule{
	{
		def:       BadgeDef{Slug: BadgeFirstLesson, Key: "firstLesson", Name: "First Lesson", Description: "Finish your first lesson", Color: "rgba(237, 165, 60, 1)"},
		qualifies: func(c Counters) bool { return c.LessonCompleted },
	},
	{
		def:       BadgeDef{Slug: BadgeStreakStarter, Key: "streakStarter", Name: "Streak Starter", Description: "Reach a 3-day streak", Color: "rgba(236, 110, 59, 1)"},
		qualifies: func(c Counters) bool { return c.Streak >= streakStarterDays },
	},
	{
		def:       BadgeDef{Slug: BadgeSuperLearner, Key: "superLearner", Name: "Super Learner", Description: "Complete 5 courses", Color: "rgba(62, 212, 99, 1)"},
		qualifies: func(c Counters) bool { return c.CompletedCourses >= superLearnerCourses },
	},
	{
		def:       BadgeDef{Slug: BadgeCuriousMind, Key: "curiousMind", Name: "Curious Mind", Description: "Create 3 courses on your own topics", Color: "rgba(102, 210, 248, 1)"},
		qualifies: func(c Counters) bool { return c.CustomCoursesCreated >= curiousMindCourses },
	},
	{
		def:       BadgeDef{Slug: BadgeDedicated, Key: "dedicated", Name: "Dedicated", Description: "Reach a 7-day streak", Color: "rgba(140, 119, 247, 1)"},
		qualifies: func(c Counters) bool { return c.Streak >= dedicatedDays },
	},
	{
		def:       BadgeDef{Slug: BadgeWeekOne, Key: "weekOne", Name: "Week One", Description: "Answer daily challenges on 7 days", Color: "rgba(250, 208, 71, 1)"},
		qualifies: func(c Counters) bool { return c.Days >= weekOneDays },
	},
}

// Catalog returns the badge definitions in display order.
func Catalog() []BadgeDef {
	out := make([]BadgeDef, len(rules))
	for i, r := range rules {
		out[i] = r.def
	}
	return out
}

// Lookup finds a badge definition by slug.
func Lookup(slug string) (BadgeDef, bool) {
	for _, r := range rules {
		if r.def.Slug == slug {
			return r.def, true
		}
	}
	return BadgeDef{}, false
}

// Qualified returns every slug whose predicate holds, in catalog order.
func Qualified(c Counters) []string {
	var out []string
	for _, r := range rules {
		if r.qualifies(c) {
			out = append(out, r.def.Slug)
		}
	}
	return out
}

// NewlyEarned filters Qualified down to the slugs not already owned.
func NewlyEarned(c Counters, owned []string) []string {
	have := make(map[string]struct{}, len(owned))
	for _, slug := range owned {
		have[slug] = struct{}{}
	}
	var out []string
	for _, slug := range Qualified(c) {
		if _, ok := have[slug]; !ok {
			out = append(out, slug)
		}
	}
	return out
}
