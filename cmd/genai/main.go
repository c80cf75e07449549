package main

import (
	"os"

	"github.com/klothoplatform/genai-constructs/pkg/infra/genai"
	"github.com/klothoplatform/genai-constructs/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logOpts logging.LogOpts

func main() {
	var undoLogging func()
	root := &cobra.Command{
		Use:           "genai",
		Short:         "Build CloudFormation for Kendra GenAI indexes and Bedrock storage locations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			undoLogging, err = logOpts.Setup()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if undoLogging != nil {
				undoLogging()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&logOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&logOpts.Color, "color", "auto", "Colorize logs (auto, always or never)")
	flags.StringVar(&logOpts.Encoding, "log-format", "console", "Log encoding (console or json)")

	cli := &genai.Cli{}
	cli.AddCommands(root)

	if err := root.Execute(); err != nil {
		zap.S().Errorf("%+v", err)
		if undoLogging == nil {
			os.Stderr.WriteString(err.Error() + "\n") // nolint:errcheck
		}
		os.Exit(1)
	}
}
