package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shanekizito/Thinkly/internal/config"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/generator"
)

// NewGenerateCmd prints a generated course or daily challenge without storing it.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var (
		topic     string
		length    string
		language  string
		challenge bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a course (or a challenge question) for a topic and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return domain.ErrEmptyTopic
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			gen, err := generator.New(cmd.Context(), generatorOptions(cfg))
			if err != nil {
				return err
			}

			var out interface{}
			if challenge {
				out, err = gen.GenerateChallenge(cmd.Context(), topic)
			} else {
				out, err = gen.GenerateCourse(cmd.Context(), domain.CourseRequest{
					Topic:    topic,
					Length:   domain.ParseCourseLength(length),
					Language: language,
				})
			}
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to generate for")
	cmd.Flags().StringVar(&length, "length", string(domain.CourseShort), "course length: short, medium or long")
	cmd.Flags().StringVar(&language, "language", "en", "content language")
	cmd.Flags().BoolVar(&challenge, "challenge", false, "generate a daily challenge question instead of a course")
	return cmd
}

func generatorOptions(cfg config.Config) generator.Options {
	return generator.Options{
		Provider:    cfg.AI.Provider,
		Model:       cfg.AI.Model,
		APIKey:      cfg.AI.APIKey,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}
}
