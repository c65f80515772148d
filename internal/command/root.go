package command

import (
	"github.com/fgribreau/img-optimizer/internal/command/run"
	"github.com/fgribreau/img-optimizer/internal/logginglevel"
	"github.com/fgribreau/img-optimizer/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var debug bool

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "img-optimizer",
		Short:         "On-the-fly image transformation and caching proxy",
		Version:       version.FullVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if debug {
				logginglevel.Level.SetLevel(zapcore.DebugLevel)
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(run.NewCommand())

	return cmd
}
