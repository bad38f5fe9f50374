package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewiankidd/crosspose-sub000/internal/config"
	"github.com/andrewiankidd/crosspose-sub000/internal/helm"
	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
	"github.com/andrewiankidd/crosspose-sub000/internal/translate"
)

// convertOptions holds the flags shared by convert and watch.
type convertOptions struct {
	// Manifest input. When set, chart loading and rendering are skipped
	// and the chart reference argument only selects translation rules.
	manifestFile string

	// Template rendering.
	releaseName string
	namespace   string
	strict      bool
	timeout     time.Duration

	// Values merging.
	valueFiles   []string
	values       []string
	stringValues []string
	fileValues   []string

	// Translation rules.
	rulesFile string

	// Output.
	outputDir         string
	network           string
	includeInfra      bool
	remapServicePorts bool
}

// registerPipelineFlags wires the shared conversion pipeline flags onto cmd.
func registerPipelineFlags(cmd *cobra.Command, opts *convertOptions) {
	f := cmd.Flags()

	// Manifest input flags.
	f.StringVar(&opts.manifestFile, "manifest", "", "pre-rendered manifest file (skips chart rendering)")

	// Rendering flags.
	f.StringVar(&opts.releaseName, "release-name", "release", "Helm release name for rendering")
	f.StringVar(&opts.namespace, "namespace", "default", "Kubernetes namespace for rendering")
	f.BoolVar(&opts.strict, "strict", false, "fail on missing template values")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "template rendering timeout")

	// Values flags.
	f.StringArrayVarP(&opts.valueFiles, "values", "f", nil, "values YAML files (can specify multiple)")
	f.StringArrayVar(&opts.values, "set", nil, "set values (key=value, can specify multiple)")
	f.StringArrayVar(&opts.stringValues, "set-string", nil, "set string values (key=value)")
	f.StringArrayVar(&opts.fileValues, "set-file", nil, "set values from files (key=filepath)")

	// Rules flags.
	f.StringVar(&opts.rulesFile, "rules", "", "translation rules YAML file")

	// Output flags.
	f.StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory for compose files, report, and mount sources")
	f.StringVar(&opts.network, "network", translate.DefaultNetwork, "shared compose network name")
	f.BoolVar(&opts.includeInfra, "include-infra", false, "emit one compose file per catalogued infra service")
	f.BoolVar(&opts.remapServicePorts, "remap-service-ports", false, "rewrite in-cluster service DNS names to localhost host ports")
}

// pipelineResult holds the outputs of one conversion pipeline execution.
type pipelineResult struct {
	ChartName string
	Result    *translate.Result
}

// runPipeline executes the full conversion: load and render the chart (or
// read a pre-rendered manifest), select and build translation rules, then
// translate into OS-partitioned compose files plus a report.
func runPipeline(ctx context.Context, ref string, opts *convertOptions) (*pipelineResult, error) {
	logger := logging.FromContext(ctx)

	var (
		manifests []byte
		chartName string
	)

	if opts.manifestFile != "" {
		// Pre-rendered input: the reference argument names the chart
		// only for rule matching.
		data, err := os.ReadFile(opts.manifestFile)
		if err != nil {
			return nil, &ExitError{Code: 1, Err: fmt.Errorf("reading manifest file: %w", err)}
		}

		manifests = data
		chartName = ref

		logger.Info("using pre-rendered manifests",
			slog.String("file", opts.manifestFile),
			slog.String("chart", chartName),
		)
	} else {
		// 1. Load the chart.
		ch, err := helm.Load(ctx, ref)
		if err != nil {
			return nil, &ExitError{Code: 1, Err: fmt.Errorf("loading chart: %w", err)}
		}

		chartName = ch.Name()

		logger.Info("chart loaded",
			slog.String("name", chartName),
			slog.String("version", ch.Metadata.Version),
		)

		// 2. Analyze vendored dependencies. Unresolved dependencies are
		// logged but do not abort: the rendered subset still converts.
		helm.AnalyzeDependencies(ch, logger)

		// 3. Merge values.
		mergedVals, err := helm.MergeValues(ch, helm.ValuesOptions{
			ValueFiles:   opts.valueFiles,
			Values:       opts.values,
			StringValues: opts.stringValues,
			FileValues:   opts.fileValues,
		})
		if err != nil {
			return nil, &ExitError{Code: 1, Err: fmt.Errorf("merging values: %w", err)}
		}

		// 4. Render templates.
		renderCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()

		manifests, err = helm.Render(renderCtx, ch, mergedVals, helm.RenderOptions{
			ReleaseName: opts.releaseName,
			Namespace:   opts.namespace,
			Strict:      opts.strict,
		})
		if err != nil {
			return nil, &ExitError{Code: 1, Err: fmt.Errorf("rendering templates: %w", err)}
		}
	}

	// 5. Load and select translation rules.
	rulesFile := opts.rulesFile
	if rulesFile == "" {
		if cfg := config.FromContext(ctx); cfg != nil {
			rulesFile = cfg.RulesFile
		}
	}

	var matched []rules.RuleSet

	if rulesFile != "" {
		sets, err := rules.LoadFile(rulesFile)
		if err != nil {
			return nil, &ExitError{Code: 1, Err: fmt.Errorf("loading rules: %w", err)}
		}

		matched = rules.Match(sets, chartName)

		logger.Info("translation rules selected",
			slog.String("file", rulesFile),
			slog.Int("total", len(sets)),
			slog.Int("matched", len(matched)),
		)
	} else {
		logger.Debug("no rules file configured, converting without infra catalog")
	}

	rctx := rules.BuildContext(matched, logger)

	// 6. Translate.
	result, err := translate.Translate(ctx, rctx, manifests, translate.Options{
		OutputDir:         opts.outputDir,
		Network:           opts.network,
		IncludeInfra:      opts.includeInfra,
		RemapServicePorts: opts.remapServicePorts,
	})
	if err != nil {
		return nil, &ExitError{Code: 1, Err: fmt.Errorf("translating manifests: %w", err)}
	}

	return &pipelineResult{ChartName: chartName, Result: result}, nil
}
