package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/jingkaihe/skillkit/pkg/validator"
	"github.com/jingkaihe/skillkit/pkg/version"
)

func init() {
	// Environment variables, e.g. SKILLKIT_LOG_LEVEL or SKILLKIT_TRACING_ENABLED
	viper.SetEnvPrefix("SKILLKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log_level", logger.DefaultLevel)
	viper.SetDefault("log_format", "text")
	viper.SetDefault("quiet", false)
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", telemetry.TracerName)
	viper.SetDefault("tracing.sampler", "ratio")
	viper.SetDefault("tracing.ratio", 1.0)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillkit")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

// cli holds per-invocation state shared by the commands.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	shutdown func(context.Context) error
}

func newRootCmd(app *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skillkit",
		Short: "Validate, package and scaffold agent skills",
		Long: `skillkit checks skill directories (a SKILL.md descriptor plus optional
scripts/, references/ and assets/) against the packaging rules, builds
deterministic zip archives from valid skills and scaffolds new ones.`,
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
				return err
			}
			shutdown, err := initTracing(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to initialise tracing")
			}
			app.shutdown = shutdown
			return nil
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().String("log-level", logger.DefaultLevel, "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print errors and requested output")
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	addTracingFlags(rootCmd)

	rootCmd.AddCommand(
		withTracing(newInitCmd()),
		withTracing(newValidateCmd()),
		withTracing(newPackageCmd()),
		withTracing(newInspectCmd()),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &cli{stdout: stdout, stderr: stderr}
	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)

	if app.shutdown != nil {
		if serr := app.shutdown(context.WithoutCancel(ctx)); serr != nil {
			logger.G(ctx).WithError(serr).Warn("failed to flush traces")
		}
	}

	var exitErr *exitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.reported) {
		presenter.NewWithWriters(stdout, stderr).Error(err, "")
	}
	return exitCodeFor(err)
}

// newPresenter returns the presenter for cmd's output streams, quiet when
// --quiet is set.
func newPresenter(cmd *cobra.Command) *presenter.TerminalPresenter {
	p := presenter.NewWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
	p.SetQuiet(viper.GetBool("quiet"))
	return p
}

// validatorFromConfig builds a validator from the `validation` config section.
func validatorFromConfig() (*validator.Validator, error) {
	cfg, err := validator.DecodeConfig(viper.GetStringMap("validation"))
	if err != nil {
		return nil, err
	}
	return validator.New(cfg.Options()...), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
