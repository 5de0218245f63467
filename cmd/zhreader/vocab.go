package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/vocab"
)

// userEnv supplies --user when the flag is not given.
const userEnv = "ZHREADER_USER"

type vocabOptions struct {
	*options
	user string
}

func (o *vocabOptions) userID() (uuid.UUID, error) {
	raw := o.user
	if raw == "" {
		raw = os.Getenv(userEnv)
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--user or $%s is required", userEnv)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", raw, err)
	}
	return id, nil
}

// run opens the app for the duration of fn.
func (o *vocabOptions) run(ctx context.Context, fn func(a *app.App, user uuid.UUID) error) error {
	user, err := o.userID()
	if err != nil {
		return err
	}
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a, user)
}

func newVocabCmd(root *options) *cobra.Command {
	opts := &vocabOptions{options: root}
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the personal vocabulary",
	}
	cmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "User ID (UUID); defaults to $"+userEnv)

	cmd.AddCommand(
		newVocabAddCmd(opts),
		newVocabListCmd(opts),
		newVocabRmCmd(opts),
		newVocabClearCmd(opts),
		newVocabStatsCmd(opts),
		newVocabExportCmd(opts),
		newVocabImportCmd(opts),
		newVocabBackfillCmd(opts),
	)
	return cmd
}

func parseLevelFlag(raw string) (vocab.Level, error) {
	if raw == "" {
		return 0, nil
	}
	return vocab.ParseLevel(raw)
}

func newVocabAddCmd(opts *vocabOptions) *cobra.Command {
	var (
		level, pinyin, translation string
		noGloss                    bool
	)
	cmd := &cobra.Command{
		Use:   "add <word>",
		Short: "Save a word, filling missing pinyin and gloss from the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := vocab.ParseLevel(level)
			if err != nil {
				return err
			}
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				in := vocab.SaveInput{Word: args[0], Level: l, Pinyin: pinyin, Translation: translation}
				if !noGloss && (in.Pinyin == "" || in.Translation == "") {
					py, tr := a.Pipeline.Glosser().Gloss(cmd.Context(), in.Word)
					if in.Pinyin == "" {
						in.Pinyin = py
					}
					if in.Translation == "" {
						in.Translation = tr
					}
				}
				e, err := a.Vocab.Save(cmd.Context(), user, in)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "1", "Familiarity level: 1 new, 2 learning, 3 known")
	cmd.Flags().StringVar(&pinyin, "pinyin", "", "Pinyin (default: generated)")
	cmd.Flags().StringVar(&translation, "translation", "", "Translation (default: resolved)")
	cmd.Flags().BoolVar(&noGloss, "no-gloss", false, "Do not fill pinyin or translation")
	return cmd
}

func newVocabListCmd(opts *vocabOptions) *cobra.Command {
	var level, format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved words, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := parseLevelFlag(level)
			if err != nil {
				return err
			}
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				entries, err := a.Vocab.List(cmd.Context(), user, l)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Word, e.Level, e.Pinyin, e.Translation)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "Only this level")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newVocabRmCmd(opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <word>",
		Short: "Remove a saved word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				if err := a.Vocab.Delete(cmd.Context(), user, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newVocabClearCmd(opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every saved word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				n, err := a.Vocab.Clear(cmd.Context(), user)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d words\n", n)
				return nil
			})
		},
	}
}

func newVocabStatsCmd(opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count saved words per level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				stats, err := a.Vocab.Stats(cmd.Context(), user)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func newVocabExportCmd(opts *vocabOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the vocabulary as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				w := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return a.Vocab.Export(cmd.Context(), user, w)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newVocabImportCmd(opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import an exported document (stdin when no file or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				n, err := a.Vocab.Import(cmd.Context(), user, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d words\n", n)
				return nil
			})
		},
	}
}

func newVocabBackfillCmd(opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Fill missing pinyin and translations of saved words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(a *app.App, user uuid.UUID) error {
				n, err := a.Vocab.Backfill(cmd.Context(), user, a.Pipeline.Glosser())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d words\n", n)
				return nil
			})
		},
	}
}
