package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/jingkaihe/skillkit/pkg/version"
)

// initTracing initializes the OpenTelemetry tracing system
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	config, err := tracingConfig()
	if err != nil {
		return nil, err
	}
	return telemetry.InitTracer(ctx, config)
}

// tracingConfig decodes the merged "tracing" section. AllSettings is used
// rather than GetStringMap so that flag and default values are included.
func tracingConfig() (telemetry.Config, error) {
	raw, _ := viper.AllSettings()["tracing"].(map[string]interface{})
	config, err := telemetry.DecodeConfig(raw)
	if err != nil {
		return config, err
	}
	config.ServiceVersion = version.Get().Version
	return config, nil
}

// withTracing wraps a command's RunE in a "cli.command" span. The tracer is
// looked up per call so it follows the provider installed by initTracing.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRunE := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})

		ctx, span := telemetry.Tracer("skillkit.cli").Start(cmd.Context(), "cli.command", trace.WithAttributes(attrs...))
		defer span.End()
		cmd.SetContext(ctx)

		err := originalRunE(cmd, args)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}

	return cmd
}

func addTracingFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().String("tracing-sampler", "ratio", "Tracing sampler type (always, never, ratio)")
	rootCmd.PersistentFlags().Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")
	rootCmd.PersistentFlags().String("tracing-service-name", telemetry.TracerName, "Service name reported with every span")

	viper.BindPFlag("tracing.enabled", rootCmd.PersistentFlags().Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.sampler", rootCmd.PersistentFlags().Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", rootCmd.PersistentFlags().Lookup("tracing-ratio"))
	viper.BindPFlag("tracing.service_name", rootCmd.PersistentFlags().Lookup("tracing-service-name"))
}
