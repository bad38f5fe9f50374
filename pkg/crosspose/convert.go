// Package crosspose provides a public Go API for converting Kubernetes
// manifests into OS-partitioned docker-compose projects.
//
// This package exposes the crosspose conversion pipeline as a library,
// allowing programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := crosspose.Convert(ctx, "path/to/chart",
//	    crosspose.WithOutputDir("out"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Files)
//
// With pre-rendered manifests:
//
//	result, err := crosspose.Convert(ctx, "my-app",
//	    crosspose.WithManifests(rendered),
//	    crosspose.WithRulesFile("rules.yaml"),
//	    crosspose.WithOutputDir("out"),
//	)
package crosspose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/andrewiankidd/crosspose-sub000/internal/helm"
	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
	"github.com/andrewiankidd/crosspose-sub000/internal/translate"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures the conversion pipeline.
// Use the With* functions to create Options.
type Option func(*options)

// options holds the internal configuration for the conversion pipeline.
type options struct {
	// Manifest input.
	manifests []byte

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
	ruleSets  []rules.RuleSet

	// Output.
	outputDir         string
	network           string
	includeInfra      bool
	remapServicePorts bool

	logger *slog.Logger
}

// --- Manifest input ---

// WithManifests supplies pre-rendered manifest text, skipping chart loading
// and rendering. The chart reference is then only used to select translation
// rules.
func WithManifests(data []byte) Option { return func(o *options) { o.manifests = data } }

// --- Template rendering ---

// WithReleaseName sets the Helm release name (default: "release").
func WithReleaseName(name string) Option { return func(o *options) { o.releaseName = name } }

// WithNamespace sets the Kubernetes namespace (default: "default").
func WithNamespace(ns string) Option { return func(o *options) { o.namespace = ns } }

// WithStrict enables strict template rendering (fail on missing values).
func WithStrict() Option { return func(o *options) { o.strict = true } }

// WithTimeout sets the template rendering timeout (default: 30s).
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// --- Values merging ---

// WithValueFiles sets paths to additional values files.
func WithValueFiles(files []string) Option { return func(o *options) { o.valueFiles = files } }

// WithValues sets individual value overrides (key=value).
func WithValues(vals []string) Option { return func(o *options) { o.values = vals } }

// WithStringValues sets individual string value overrides (key=value).
func WithStringValues(vals []string) Option { return func(o *options) { o.stringValues = vals } }

// WithFileValues sets individual file value overrides (key=filepath).
func WithFileValues(vals []string) Option { return func(o *options) { o.fileValues = vals } }

// --- Translation rules ---

// WithRulesFile loads translation rules from a YAML file and matches them
// against the chart name.
func WithRulesFile(path string) Option { return func(o *options) { o.rulesFile = path } }

// WithRuleSets supplies parsed rule sets directly, bypassing file loading.
// Matching against the chart name still applies.
func WithRuleSets(sets []rules.RuleSet) Option { return func(o *options) { o.ruleSets = sets } }

// --- Output ---

// WithOutputDir sets the directory receiving compose files, the report, and
// the bind-mount source trees (default: current directory).
func WithOutputDir(dir string) Option { return func(o *options) { o.outputDir = dir } }

// WithNetwork sets the shared compose network name (default: "crosspose").
func WithNetwork(name string) Option { return func(o *options) { o.network = name } }

// WithIncludeInfra emits one compose file per catalogued infra service.
func WithIncludeInfra() Option { return func(o *options) { o.includeInfra = true } }

// WithRemapServicePorts rewrites in-cluster service DNS names in environment
// values to localhost host ports.
func WithRemapServicePorts() Option { return func(o *options) { o.remapServicePorts = true } }

// WithLogger sets the logger used by the pipeline (default: discard).
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

// ConvertedService describes one container converted into a compose service.
type ConvertedService struct {
	Name     string
	Kind     string
	Workload string
	OS       string
	File     string
}

// SkippedResource describes one manifest document that was not converted.
type SkippedResource struct {
	Name   string
	Kind   string
	Reason string
}

// PortProxy describes a host port that needs forwarding between the two
// container hosts.
type PortProxy struct {
	Port    int
	Network string
}

// Result holds the output of a successful conversion.
type Result struct {
	// ChartName is the name of the source chart (or the reference given
	// when converting pre-rendered manifests).
	ChartName string

	// ChartVersion is the version of the source chart, when rendered.
	ChartVersion string

	// Files lists the written compose file names, in emission order.
	Files []string

	// Converted lists the services written to compose files.
	Converted []ConvertedService

	// Skipped lists manifest documents left unconverted, with reasons.
	Skipped []SkippedResource

	// PortProxies lists host ports needing cross-host forwarding.
	PortProxies []PortProxy
}

// Convert renders the chart at chartRef (a local directory or .tgz archive)
// and translates it into docker-compose files under the output directory.
func Convert(ctx context.Context, chartRef string, opts ...Option) (*Result, error) {
	o := &options{
		releaseName: "release",
		namespace:   "default",
		timeout:     30 * time.Second,
		outputDir:   ".",
		network:     translate.DefaultNetwork,
		logger:      discardLogger(),
	}

	for _, opt := range opts {
		opt(o)
	}

	ctx = logging.NewContext(ctx, o.logger)

	manifests := o.manifests
	chartName := chartRef
	chartVersion := ""

	if manifests == nil {
		ch, err := helm.Load(ctx, chartRef)
		if err != nil {
			return nil, fmt.Errorf("loading chart: %w", err)
		}

		chartName = ch.Name()
		if ch.Metadata != nil {
			chartVersion = ch.Metadata.Version
		}

		helm.AnalyzeDependencies(ch, o.logger)

		mergedVals, err := helm.MergeValues(ch, helm.ValuesOptions{
			ValueFiles:   o.valueFiles,
			Values:       o.values,
			StringValues: o.stringValues,
			FileValues:   o.fileValues,
		})
		if err != nil {
			return nil, fmt.Errorf("merging values: %w", err)
		}

		renderCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		manifests, err = helm.Render(renderCtx, ch, mergedVals, helm.RenderOptions{
			ReleaseName: o.releaseName,
			Namespace:   o.namespace,
			Strict:      o.strict,
		})
		if err != nil {
			return nil, fmt.Errorf("rendering templates: %w", err)
		}
	}

	sets := o.ruleSets

	if o.rulesFile != "" {
		loaded, err := rules.LoadFile(o.rulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rules: %w", err)
		}

		sets = append(sets, loaded...)
	}

	rctx := rules.BuildContext(rules.Match(sets, chartName), o.logger)

	res, err := translate.Translate(ctx, rctx, manifests, translate.Options{
		OutputDir:         o.outputDir,
		Network:           o.network,
		IncludeInfra:      o.includeInfra,
		RemapServicePorts: o.remapServicePorts,
	})
	if err != nil {
		return nil, fmt.Errorf("translating manifests: %w", err)
	}

	result := &Result{
		ChartName:    chartName,
		ChartVersion: chartVersion,
		Files:        res.Files,
	}

	for _, c := range res.Report.Converted {
		result.Converted = append(result.Converted, ConvertedService{
			Name:     c.Name,
			Kind:     c.Kind,
			Workload: c.Workload,
			OS:       string(c.OS),
			File:     c.File,
		})
	}

	for _, u := range res.Report.Unconverted {
		result.Skipped = append(result.Skipped, SkippedResource{
			Name:   u.Name,
			Kind:   u.Kind,
			Reason: u.Reason,
		})
	}

	for _, p := range res.Report.PortProxyRequirements {
		result.PortProxies = append(result.PortProxies, PortProxy{
			Port:    p.Port,
			Network: p.Network,
		})
	}

	return result, nil
}
