package genai

import (
	"os"

	"github.com/fatih/color"
	"github.com/klothoplatform/genai-constructs/pkg/config"
	"github.com/klothoplatform/genai-constructs/pkg/io"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type Cli struct {
	synthCfg struct {
		configPath string
		outDir     string
		format     string
	}
}

func (c *Cli) AddCommands(root *cobra.Command) {
	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the CloudFormation template for an application config",
		Args:  cobra.NoArgs,
		RunE:  c.Synth,
	}
	flags := synthCmd.Flags()
	flags.StringVarP(&c.synthCfg.configPath, "config", "c", "", "Application config file (json, yaml or toml)")
	flags.StringVarP(&c.synthCfg.outDir, "output-dir", "o", "", "Output directory, overrides out_dir from the config")
	flags.StringVar(&c.synthCfg.format, "format", "", "Output format (json or yaml), overrides output_format from the config")
	_ = synthCmd.MarkFlagRequired("config")

	diffCmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show the resource changes between two synthesized templates",
		Args:  cobra.ExactArgs(2),
		RunE:  c.Diff,
	}

	root.AddCommand(synthCmd, diffCmd)
}

func (c *Cli) Synth(cmd *cobra.Command, args []string) error {
	app, err := config.ReadConfig(c.synthCfg.configPath)
	if err != nil {
		return errors.Wrapf(err, "could not read config '%s'", c.synthCfg.configPath)
	}
	if c.synthCfg.outDir != "" {
		app.OutDir = c.synthCfg.outDir
	}
	if c.synthCfg.format != "" {
		app.OutputFormat = c.synthCfg.format
	}
	if err := app.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	res, err := Synth(app)
	if err != nil {
		return errors.Wrap(err, "failed to synthesize")
	}
	files, err := res.Files(app.OutputFormat)
	if err != nil {
		return errors.Wrap(err, "failed to render")
	}
	if err := io.OutputTo(files, app.OutDir); err != nil {
		return errors.Wrapf(err, "failed to write output to '%s'", app.OutDir)
	}
	zap.S().Infof("Wrote %d files to %s", len(files), app.OutDir)
	return nil
}

func (c *Cli) Diff(cmd *cobra.Command, args []string) error {
	before, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "could not read '%s'", args[0])
	}
	after, err := os.ReadFile(args[1])
	if err != nil {
		return errors.Wrapf(err, "could not read '%s'", args[1])
	}
	changes, err := DiffTemplates(before, after)
	if err != nil {
		return err
	}
	PrintChanges(cmd.OutOrStdout(), changes)
	for _, rc := range changes {
		if rc.Action == ActionReplace {
			color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "warning: %s will be replaced\n", rc.LogicalId) // nolint:errcheck
		}
	}
	return nil
}
