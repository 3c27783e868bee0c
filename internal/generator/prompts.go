package generator

import (
	"fmt"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
)

// Range is an inclusive count range.
type Range struct {
	From int
	To   int
}

// CourseSize describes how big a course of a given length tier is.
type CourseSize struct {
	Lessons   int
	Sections  Range
	Questions Range
}

var courseSizes = map[domain.CourseLength]CourseSize{
	domain.CourseShort:  {Lessons: 4, Sections: Range{3, 4}, Questions: Range{1, 2}},
	domain.CourseMedium: {Lessons: 6, Sections: Range{4, 6}, Questions: Range{2, 4}},
	domain.CourseLong:   {Lessons: 10, Sections: Range{6, 8}, Questions: Range{3, 6}},
}

// SizeFor returns the size of a length tier; unknown tiers are short.
func SizeFor(length domain.CourseLength) CourseSize {
	if size, ok := courseSizes[length]; ok {
		return size
	}
	return courseSizes[domain.CourseShort]
}

func CourseSystemPrompt() string {
	return "You are an expert course designer. Return ONLY valid JSON."
}

func ChallengeSystemPrompt() string {
	return "You write the daily challenge question for a learning app. Return ONLY valid JSON."
}

// BuildCoursePrompt asks for a course written natively in the requested language.
func BuildCoursePrompt(req domain.CourseRequest) string {
	size := SizeFor(req.Length)
	language := req.Language
	if language == "" {
		language = "en"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert course designer who creates native, language-specific educational content.\n\n")
	fmt.Fprintf(&b, "Do NOT translate English content. Design the entire course natively in %s, with examples and phrasing that feel natural to %s-speaking learners.\n\n", language, language)
	fmt.Fprintf(&b, "1. Write a short, catchy course title for the topic: at most 4 words, no filler words.\n\n")
	fmt.Fprintf(&b, "2. Create a %d-lesson course on %q in %s using this JSON structure:\n", size.Lessons, req.Topic, language)
	b.WriteString(`{
  "title": string,
  "lessons": [
    {
      "id": string,
      "title": string,
      "description": string,
      "duration": string,
      "content": [{ "subtitle": string, "explain": string }],
      "progress": number,
      "quiz": {
        "questions": [{ "question": string, "options": string[], "answer": string }]
      }
    }
  ]
}
`)
	b.WriteString("\n3. Requirements:\n")
	fmt.Fprintf(&b, "- Each lesson has %d-%d content sections\n", size.Sections.From, size.Sections.To)
	b.WriteString("- Each \"explain\" is 4-6 sentences\n")
	fmt.Fprintf(&b, "- Each lesson has %d-%d quiz questions with 4 options; \"answer\" repeats the correct option verbatim\n", size.Questions.From, size.Questions.To)
	b.WriteString("- All progress values are 0\n")
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	return b.String()
}

// BuildChallengePrompt asks for one beginner multiple choice question.
func BuildChallengePrompt(topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create 1 multiple-choice quiz question about %q with:\n", topic)
	b.WriteString("- 4 plausible options\n")
	b.WriteString("- 1 correct answer, repeated verbatim from the options\n")
	b.WriteString("- Difficulty: beginner\n")
	b.WriteString("- Format:\n")
	fmt.Fprintf(&b, "{\n  \"question\": string,\n  \"options\": string[],\n  \"answer\": string,\n  \"topic\": %q\n}\n", topic)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	return b.String()
}
