package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/japaniel/zhreader/pkg/app"
	"github.com/japaniel/zhreader/pkg/config"
)

// options is shared by every subcommand. Configuration is loaded lazily so
// commands like version work without a config file.
type options struct {
	configPath string
	offline    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "zhreader",
		Short:         "Chinese reading assistant",
		Long:          "Segment Chinese text, attach pinyin and English glosses, and keep a personal vocabulary.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Disable remote translation providers and LLM passage generation")

	root.AddCommand(
		newAnnotateCmd(opts),
		newGenerateCmd(opts),
		newServeCmd(opts),
		newVocabCmd(opts),
		newLexiconCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *options) load() (*config.Config, *slog.Logger, error) {
	if o.cfg != nil {
		return o.cfg, o.logger, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if o.offline {
		cfg.Translate.Providers = config.ProviderNone
		cfg.Generate.TemplatesOnly = true
	}
	o.cfg = cfg
	o.logger = app.NewLogger(cfg.Log)
	return o.cfg, o.logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "zhreader "+app.BuildVersion())
		},
	}
}
