package main

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/lecture-grader/internal/config"
	"github.com/codebuildervaibhav/lecture-grader/internal/logging"
	"github.com/codebuildervaibhav/lecture-grader/internal/registry"
)

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "gradectl",
		Short:         "Grade lecture recordings and manage lecture materials from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log component output to stderr")

	cmd.AddCommand(
		newGradeCmd(opts),
		newIngestCmd(opts),
		newRetrieveCmd(opts),
		newVideosCmd(opts),
	)
	return cmd
}

// session bundles what every subcommand needs
type session struct {
	reg *registry.Registry
	cfg *config.Config
	log logrus.FieldLogger
}

// open loads config and builds the registry. Logs go to stderr only with
// --verbose so progress bars stay readable.
func (o *globalOptions) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	var out io.Writer = io.Discard
	if o.verbose {
		out = os.Stderr
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format, out)

	reg, err := registry.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &session{reg: reg, cfg: cfg, log: log}, nil
}

func (s *session) Close() {
	if err := s.reg.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to release components")
	}
}
