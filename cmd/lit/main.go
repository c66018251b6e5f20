package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spirodonfl/literate-programming/internal/config"
	"github.com/spirodonfl/literate-programming/internal/executor"
	"github.com/spirodonfl/literate-programming/internal/paths"
	"github.com/spirodonfl/literate-programming/internal/ui"
)

var version = "0.1.0"

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "lit [input-path]",
	Short: "Literate programming from Markdown",
	Long: `Extracts code from fenced blocks in Markdown documents and writes it
to source files.

Blocks are marked with lit- attributes on the opening fence:

  ` + "```js lit-type:code lit-name:greet" + `
  ` + "```js lit-type:output lit-file:main.js" + `

Placeholders like {{{ greet }}} are replaced with the named block.`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: setupLogger,
	PersistentPostRun: syncLogger,
	RunE:              runLit,
	SilenceUsage:      true,
}

var checkCmd = &cobra.Command{
	Use:   "check [input-path]",
	Short: "Report problems in the documents without writing anything",
	Long: `Scans and resolves every block like a normal run but writes no files.
Exits non-zero when a document has a problem or a block fails to resolve.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringP("input-path", "i", "", "Directory to scan for Markdown documents")
	flags.StringP("output-path", "o", "", "Directory output files are written under")
	flags.String("output-file", "", "Only write the output block with this target")
	flags.String("md-file", "", "Only write output blocks from documents matching this regex")
	flags.String("unresolved", "", "Unresolved placeholders: keep, warn or error")
	flags.Int("max-passes", 0, "Maximum expansion passes per block")
	flags.Bool("output-source", true, "Prefix substituted blocks with Source/Anchor comments")
	flags.Bool("absolute-source-paths", false, "Use absolute paths in Source comments")
	flags.Bool("dry-run", false, "Resolve everything but write no files")
	flags.BoolP("verbose", "v", false, "Log debug details")
	flags.BoolP("quiet", "q", false, "Only log warnings and errors")
}

func syncLogger(cmd *cobra.Command, args []string) {
	_ = logger.Sync()
}

func setupLogger(cmd *cobra.Command, args []string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger = l
	return nil
}

// loadOptions merges defaults, lit.yaml, LIT_* variables and the flags the
// user actually set, in increasing precedence.
func loadOptions(cmd *cobra.Command, args []string) (config.Options, config.Overrides, error) {
	v := viper.New()
	if err := config.Init(v); err != nil {
		return config.Options{}, config.Overrides{}, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Loaded config file", zap.String("path", used))
	}

	opts, err := config.Load(v)
	if err != nil {
		return config.Options{}, config.Overrides{}, err
	}

	ov, err := overrides(cmd, args)
	if err != nil {
		return config.Options{}, config.Overrides{}, err
	}
	return opts, ov, nil
}

func overrides(cmd *cobra.Command, args []string) (config.Overrides, error) {
	var ov config.Overrides
	flags := cmd.Flags()

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		s, _ := flags.GetString(name)
		return &s
	}
	boolean := func(name string) *bool {
		if !flags.Changed(name) {
			return nil
		}
		b, _ := flags.GetBool(name)
		return &b
	}

	ov.InputPath = str("input-path")
	if len(args) > 0 {
		ov.InputPath = &args[0]
	}
	ov.OutputPath = str("output-path")
	ov.OutputFile = str("output-file")
	ov.MDFile = str("md-file")
	ov.OutputSource = boolean("output-source")
	ov.OutputSourceAbsolutePaths = boolean("absolute-source-paths")
	ov.DryRun = boolean("dry-run")

	if s := str("unresolved"); s != nil {
		p, err := config.ParseUnresolvedPolicy(*s)
		if err != nil {
			return ov, err
		}
		ov.Unresolved = &p
	}
	if flags.Changed("max-passes") {
		n, _ := flags.GetInt("max-passes")
		if n < 1 {
			return ov, fmt.Errorf("--max-passes must be positive, got %d", n)
		}
		ov.MaxPasses = &n
	}
	return ov, nil
}

func execute(cmd *cobra.Command, args []string, forceDryRun bool) (*executor.Report, config.Options, error) {
	opts, ov, err := loadOptions(cmd, args)
	if err != nil {
		return nil, opts, err
	}
	if forceDryRun {
		dry := true
		ov.DryRun = &dry
	}

	exec := executor.NewExecutor(afero.NewOsFs(), opts, ov, logger)
	rep, err := exec.Run()
	if err != nil {
		return nil, opts.With(ov), err
	}
	return rep, opts.With(ov), nil
}

func runLit(cmd *cobra.Command, args []string) error {
	rep, opts, err := execute(cmd, args, false)
	if err != nil {
		return err
	}
	ui.PrintReport(cmd.OutOrStdout(), rep, paths.NewResolver(opts.InputPath()), opts.DryRun())
	return nil
}

var errProblems = errors.New("problems found")

func runCheck(cmd *cobra.Command, args []string) error {
	rep, _, err := execute(cmd, args, true)
	if err != nil {
		return err
	}
	ui.PrintDiagnostics(cmd.OutOrStdout(), rep, nil)
	if n := len(rep.Diagnostics) + len(rep.Failures()); n > 0 {
		return fmt.Errorf("%w: %d", errProblems, n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d documents, no problems\n", rep.Documents)
	return nil
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
