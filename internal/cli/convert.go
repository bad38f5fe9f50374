package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/helm"
	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
)

func newConvertCommand() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <chart-reference>",
		Short: "Convert a chart into OS-partitioned docker-compose files",
		Long: `Convert renders a Helm chart (local directory or .tgz archive) and
translates the resulting Kubernetes workloads into docker-compose files,
one per workload group and container OS.

Translation rules matched against the chart name scaffold supporting
infrastructure services and resolve environment tokens and secrets.
A conversion report is written alongside the compose files.

With --manifest, rendering is skipped and the chart reference is only
used to select translation rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerPipelineFlags(cmd, opts)

	return cmd
}

func runConvert(ctx context.Context, cmd *cobra.Command, ref string, opts *convertOptions) error {
	logger := logging.FromContext(ctx)

	// Detect source type (informational).
	if opts.manifestFile == "" {
		if sourceType, err := helm.Detect(ref); err == nil {
			logger.Info("detected chart source type", slog.String("type", sourceType.String()))
		}
	}

	res, err := runPipeline(ctx, ref, opts)
	if err != nil {
		return err
	}

	logger.Info("conversion complete",
		slog.String("chart", res.ChartName),
		slog.Int("converted", len(res.Result.Report.Converted)),
		slog.Int("unconverted", len(res.Result.Report.Unconverted)),
		slog.Int("files", len(res.Result.Files)),
	)

	printConvertSummary(cmd.ErrOrStderr(), res)

	return nil
}

// printConvertSummary prints a human-readable summary of the conversion.
func printConvertSummary(w io.Writer, res *pipelineResult) {
	report := res.Result.Report

	_, _ = fmt.Fprintf(w, "\n--- Conversion Summary ---\n")
	_, _ = fmt.Fprintf(w, "Chart:        %s\n", res.ChartName)
	_, _ = fmt.Fprintf(w, "Converted:    %d\n", len(report.Converted))
	_, _ = fmt.Fprintf(w, "Unconverted:  %d\n", len(report.Unconverted))

	for _, u := range report.Unconverted {
		_, _ = fmt.Fprintf(w, "  skipped: %s/%s (%s)\n", u.Kind, u.Name, u.Reason)
	}

	if len(report.InfraResources) > 0 {
		_, _ = fmt.Fprintf(w, "Infra:        %d\n", len(report.InfraResources))
	}

	if len(report.PortProxyRequirements) > 0 {
		_, _ = fmt.Fprintf(w, "Port proxies: %d\n", len(report.PortProxyRequirements))
	}

	_, _ = fmt.Fprintf(w, "Files:\n")

	for _, f := range res.Result.Files {
		_, _ = fmt.Fprintf(w, "  %s\n", f)
	}

	_, _ = fmt.Fprintf(w, "  %s\n", compose.ReportFileName)
	_, _ = fmt.Fprintf(w, "--------------------------\n")
}
