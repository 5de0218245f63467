package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/generate"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		format      string
		annotateOut bool
		listTopics  bool
	)
	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Write a short Chinese reading passage on a topic",
		Long: "Ask the configured LLM for a learner-level paragraph about the topic. " +
			"Without an API key, with --offline, or when the model fails, a built-in template is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listTopics {
				for _, t := range generate.QuickTopics {
					fmt.Fprintln(out, t)
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("topic required (try --topics for suggestions)")
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			p, err := app.NewPipeline(cfg, logger)
			if err != nil {
				return err
			}
			passage, err := p.Generator.Generate(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if !annotateOut {
				if format == "json" {
					return writeJSON(out, passage)
				}
				_, err := fmt.Fprintln(out, passage.Text)
				return err
			}

			sentences, err := p.Annotator.AnnotateSentences(ctx, passage.Text)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(out, map[string]any{
					"topic":     passage.Topic,
					"source":    passage.Source,
					"text":      passage.Text,
					"sentences": sentences,
				})
			}
			return writeSentences(out, passage.Topic, sentences)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&annotateOut, "annotate", "a", false, "Annotate the passage sentence by sentence")
	cmd.Flags().BoolVar(&listTopics, "topics", false, "List suggested topics")
	return cmd
}

