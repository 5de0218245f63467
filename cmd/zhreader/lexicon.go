package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/lexicon"
)

func newLexiconCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Manage the dictionary used for segmentation and glosses",
	}

	var dest string
	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Download CC-CEDICT unless it is already present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			path := dest
			if path == "" {
				path = cfg.Lexicon.Path
			}
			if path == "" {
				path = filepath.Join(".", "cedict_ts.u8")
			}
			if err := lexicon.NewDownloader(cfg.Lexicon.CEDICTURL, logger).Ensure(cmd.Context(), path); err != nil {
				return err
			}
			lex, err := lexicon.LoadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", path, lex.Len())
			return nil
		},
	}
	fetch.Flags().StringVarP(&dest, "out", "o", "", "Destination file (default: lexicon.path or ./cedict_ts.u8)")

	lookup := &cobra.Command{
		Use:   "lookup <word>...",
		Short: "Show pinyin and gloss for words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			p, err := app.NewPipeline(cfg, logger)
			if err != nil {
				return err
			}
			g := p.Glosser()
			out := cmd.OutOrStdout()
			for _, w := range args {
				py, tr := g.Gloss(cmd.Context(), w)
				_, known := p.Lexicon.Lookup(w)
				fmt.Fprintf(out, "%s\t%s\t%s\tlexicon=%t\n", w, py, tr, known)
			}
			return nil
		},
	}

	cmd.AddCommand(fetch, lookup)
	return cmd
}
