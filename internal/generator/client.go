package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/sirupsen/logrus"
)

// LLMClient is the interface every provider implementation satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Options selects and tunes the provider.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// Generator turns LLM output into validated courses and daily challenges.
type Generator struct {
	llm   LLMClient
	model string
	log   *logrus.Entry
}

// New builds the generator for the configured provider ("anthropic", "gemini" or "mock").
func New(ctx context.Context, opts Options) (*Generator, error) {
	var (
		llm LLMClient
		err error
	)
	switch strings.ToLower(opts.Provider) {
	case "anthropic", "claude":
		if opts.Model == "" {
			opts.Model = defaultAnthropicModel
		}
		llm = NewAnthropicClient(opts)
	case "gemini", "google":
		if opts.Model == "" {
			opts.Model = defaultGeminiModel
		}
		llm, err = NewGeminiClient(ctx, opts)
		if err != nil {
			return nil, err
		}
	case "", "mock":
		opts.Model = "mock"
		llm = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
	logrus.WithFields(logrus.Fields{"component": "generator", "model": opts.Model}).Info("generator ready")
	return NewWithClient(llm, opts.Model), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(llm LLMClient, model string) *Generator {
	return &Generator{llm: llm, model: model, log: logrus.WithField("component", "generator")}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GenerateCourse asks the model for a full course and validates its shape.
func (g *Generator) GenerateCourse(ctx context.Context, req domain.CourseRequest) (domain.GeneratedCourse, error) {
	resp, err := g.llm.Generate(ctx, CourseSystemPrompt(), BuildCoursePrompt(req))
	if err != nil {
		return domain.GeneratedCourse{}, fmt.Errorf("generate course: %w", err)
	}
	g.log.WithFields(logrus.Fields{
		"topic":         req.Topic,
		"prompt_tokens": resp.PromptTokens,
		"output_tokens": resp.OutputTokens,
	}).Debug("course generated")

	course, err := ParseCourse(resp.Content)
	if err != nil {
		return domain.GeneratedCourse{}, fmt.Errorf("parse course response: %w", err)
	}
	return course, nil
}

// GenerateChallenge asks the model for one beginner question about topic.
func (g *Generator) GenerateChallenge(ctx context.Context, topic string) (domain.GeneratedChallenge, error) {
	resp, err := g.llm.Generate(ctx, ChallengeSystemPrompt(), BuildChallengePrompt(topic))
	if err != nil {
		return domain.GeneratedChallenge{}, fmt.Errorf("generate challenge: %w", err)
	}
	challenge, err := ParseChallenge(resp.Content)
	if err != nil {
		return domain.GeneratedChallenge{}, fmt.Errorf("parse challenge response: %w", err)
	}
	if challenge.Topic == "" {
		challenge.Topic = topic
	}
	return challenge, nil
}
