package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
)

var cliTracer = observability.NewBus("lifecycled.cli")

// withTracing wraps cmd's Run or RunE in a span recording the command
// path and every flag the caller set, mirroring the teacher's
// per-command tracing wrapper.
func withTracing(cmd *cobra.Command) *cobra.Command {
	startSpan := func(cmd *cobra.Command, args []string) (context.Context, trace.Span) {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})
		return cliTracer.StartCLICommand(cmd.Context(), attrs...)
	}

	if original := cmd.RunE; original != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			ctx, span := startSpan(cmd, args)
			defer span.End()
			cmd.SetContext(ctx)

			if err := original(cmd, args); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			return nil
		}
		return cmd
	}

	if original := cmd.Run; original != nil {
		cmd.Run = func(cmd *cobra.Command, args []string) {
			ctx, span := startSpan(cmd, args)
			defer span.End()
			cmd.SetContext(ctx)
			original(cmd, args)
		}
	}

	return cmd
}
