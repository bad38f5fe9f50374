package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
	"github.com/andrewiankidd/crosspose-sub000/internal/watch"
)

type watchOptions struct {
	convertOptions

	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <chart-reference>",
		Short: "Watch a chart for changes and auto-convert",
		Long: `Watch monitors a Helm chart directory (plus any values and rules
files) for changes and automatically re-runs the conversion when source
files are modified.

File changes are debounced to avoid rapid re-runs. Each regeneration
prints a status line and a diff of the conversion report against the
previous run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerPipelineFlags(cmd, &opts.convertOptions)

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, ref string, opts *watchOptions) error {
	logger := logging.FromContext(ctx)

	// Track the previous report across regenerations for diffing.
	var prevReport []byte

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		res, err := runPipeline(fnCtx, ref, &opts.convertOptions)
		if err != nil {
			return nil, err
		}

		currReport, marshalErr := sigsyaml.Marshal(res.Result.Report)
		if marshalErr != nil {
			return nil, marshalErr
		}

		diff := watch.ReportDiff(prevReport, currReport)
		prevReport = currReport

		return &watch.RunResult{
			Converted:   len(res.Result.Report.Converted),
			Unconverted: len(res.Result.Report.Unconverted),
			Files:       len(res.Result.Files),
			ReportDiff:  diff,
		}, nil
	}

	extraFiles := append([]string{}, opts.valueFiles...)
	if opts.rulesFile != "" {
		extraFiles = append(extraFiles, opts.rulesFile)
	}

	watchOpts := watch.Options{
		ChartDir:   ref,
		ExtraFiles: extraFiles,
		Debounce:   opts.debounce,
		Logger:     logger,
		Out:        cmd.ErrOrStderr(),
	}

	// With a pre-rendered manifest there is no chart directory to walk, so
	// the manifest file itself is watched instead.
	if opts.manifestFile != "" {
		watchOpts.ChartDir = ""
		watchOpts.ExtraFiles = append(watchOpts.ExtraFiles, opts.manifestFile)
	}

	return watch.Run(ctx, watchOpts, runFn)
}
