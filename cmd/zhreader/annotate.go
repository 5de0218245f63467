package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/annotate"
	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/article"
)

func newAnnotateCmd(opts *options) *cobra.Command {
	var (
		file      string
		pageURL   string
		format    string
		sentences bool
	)
	cmd := &cobra.Command{
		Use:   "annotate [text]",
		Short: "Annotate Chinese text with pinyin and glosses",
		Long: "Annotate text given as arguments, read from --file, fetched from --url " +
			"(article extraction with ruby annotations stripped), or read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var title, text string
			switch {
			case len(args) > 0:
				text = strings.Join(args, " ")
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				text = string(b)
			case pageURL != "":
				a, err := article.NewFetcher(logger).Fetch(ctx, pageURL)
				if err != nil {
					return err
				}
				title, text = a.Title, a.Text
			default:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no text to annotate")
			}

			p, err := app.NewPipeline(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if sentences {
				result, err := p.Annotator.AnnotateSentences(ctx, text)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(out, map[string]any{"title": title, "sentences": result})
				}
				return writeSentences(out, title, result)
			}

			tokens, err := p.Annotator.Annotate(ctx, text)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(out, map[string]any{"title": title, "tokens": tokens})
			}
			return writeSentences(out, title, []annotate.Sentence{{Tokens: tokens}})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from a file")
	cmd.Flags().StringVarP(&pageURL, "url", "u", "", "Fetch and extract an article")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&sentences, "sentences", "s", false, "Group tokens by sentence")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeSentences prints one token per line as word, pinyin and gloss columns.
func writeSentences(w io.Writer, title string, sentences []annotate.Sentence) error {
	if title != "" {
		fmt.Fprintf(w, "# %s\n\n", title)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range sentences {
		if s.Text != "" {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "%s\n", s.Text)
		}
		for _, t := range s.Tokens {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Text, t.Pinyin, t.Translation)
		}
	}
	return tw.Flush()
}
