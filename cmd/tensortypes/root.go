package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/tensortypes/internal/check"
	"github.com/born-ml/tensortypes/internal/config"
	"github.com/born-ml/tensortypes/internal/manifest"
	"github.com/born-ml/tensortypes/internal/report"
	fswatch "github.com/born-ml/tensortypes/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information (set at build time).
var (
	Version   = "v0.1.0-dev"
	GitCommit = "unknown"
)

// errChecksFailed is returned after a report was written that contains
// failures. main exits non-zero without printing it.
var errChecksFailed = errors.New("checks failed")

var errNoManifest = errors.New("no manifest: pass --manifest or set it in the config file")

type app struct {
	configFile string
	verbose    bool

	logger    *zap.Logger
	newLogger func(verbose bool) (*zap.Logger, error)
}

func newApp() *app {
	return &app{newLogger: productionLogger}
}

func productionLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tensortypes",
		Short: "Check tensor shapes and kinds against declared types",
		Long: `tensortypes checks every tensor in safetensors files against a manifest of
tensor types whose dimensions are named parameters.

Parameters come from tensortypes.yaml, TENSORTYPES_PARAMS__<NAME> variables
and --set name=value, in increasing precedence.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logger != nil {
				return nil
			}
			l, err := a.newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = l
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default tensortypes.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd(a), newParamsCmd(a), newVersionCmd())
	return root
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		set    []string
		strict bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "check [flags] FILE...",
		Short: "Check safetensors files against the manifest",
		Example: `  tensortypes check -m types.yaml --set batch_size=1 --set sequence_length=100 model.safetensors
  tensortypes check -f json shards/*.safetensors
  tensortypes check --watch model.safetensors`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			run := func(ctx context.Context) error {
				return a.check(ctx, cmd, set, files, strict)
			}
			if !watch {
				return run(cmd.Context())
			}

			cfg, err := a.load(cmd, set)
			if err != nil {
				return err
			}
			if cfg.rules == nil {
				return errNoManifest
			}
			paths := append([]string{cfg.path, cfg.settings.Manifest}, files...)
			return fswatch.Run(cmd.Context(), paths, fswatch.Options{Logger: a.logger},
				func(ctx context.Context) error {
					err := run(ctx)
					if errors.Is(err, errChecksFailed) {
						return nil
					}
					return err
				})
		},
	}
	addSettingsFlags(cmd, &set)
	cmd.Flags().IntP("jobs", "j", config.DefaultJobs, "files checked in parallel")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on tensors no type matches")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "check again whenever the config, manifest or a file changes")
	return cmd
}

// check runs one full check and writes the report.
func (a *app) check(ctx context.Context, cmd *cobra.Command, set, files []string, strict bool) error {
	cfg, err := a.load(cmd, set)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.settings.Format)
	if err != nil {
		return err
	}
	if cfg.rules == nil {
		return errNoManifest
	}

	checker := check.New(cfg.rules, cfg.settings.Params,
		check.WithJobs(cfg.settings.Jobs),
		check.WithLogger(a.logger))
	results, err := checker.Check(ctx, files)
	if err != nil {
		return err
	}
	if err := report.Results(cmd.OutOrStdout(), results, format); err != nil {
		return err
	}
	if check.Summarize(results).Failed(strict) {
		return errChecksFailed
	}
	return nil
}

func newParamsCmd(a *app) *cobra.Command {
	var set []string
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print resolved parameters and manifest shapes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, set)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(cfg.settings.Format)
			if err != nil {
				return err
			}
			return report.Params(cmd.OutOrStdout(), cfg.settings.Params, cfg.rules, format)
		},
	}
	addSettingsFlags(cmd, &set)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tensortypes %s (%s)\n", Version, GitCommit)
		},
	}
}

func addSettingsFlags(cmd *cobra.Command, set *[]string) {
	cmd.Flags().StringP("manifest", "m", "", "manifest of tensor types")
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "output format: table, markdown or json")
	cmd.Flags().StringArrayVar(set, "set", nil, "parameter value as name=value (repeatable)")
}

// loaded is the outcome of app.load. path is the config file used, if any;
// rules is nil without a manifest.
type loaded struct {
	settings *config.Settings
	path     string
	rules    manifest.Rules
}

// load reads settings and, when a manifest is configured, compiles it against
// the parameters.
func (a *app) load(cmd *cobra.Command, set []string) (*loaded, error) {
	settings, path, err := config.LoadSettings(a.configFile, cmd.Flags(), set)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Loaded settings",
		zap.String("config", path),
		zap.String("manifest", settings.Manifest),
		zap.Stringer("params", settings.Params))

	cfg := &loaded{settings: settings, path: path}
	if settings.Manifest == "" {
		return cfg, nil
	}
	m, err := manifest.Load(settings.Manifest)
	if err != nil {
		return nil, err
	}
	if cfg.rules, err = m.Compile(settings.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", settings.Manifest, err)
	}
	return cfg, nil
}
