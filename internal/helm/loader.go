// Package helm loads charts from local sources, analyzes their declared
// dependencies, and renders their templates in-memory into the manifest text
// the translator consumes.
package helm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	helmloader "helm.sh/helm/v3/pkg/chart/loader"
)

// SourceType identifies the origin of a chart reference.
type SourceType int

const (
	// SourceUnknown indicates the source type could not be determined.
	SourceUnknown SourceType = iota
	// SourceDirectory is a local directory containing Chart.yaml.
	SourceDirectory
	// SourceArchive is a .tgz or .tar.gz packaged chart.
	SourceArchive
)

// String returns a human-readable name for the source type.
func (s SourceType) String() string {
	switch s {
	case SourceDirectory:
		return "directory"
	case SourceArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Detect classifies a chart reference as a directory or a packaged archive.
// Remote sources are out of scope: crosspose converts charts the developer
// already has on disk.
func Detect(ref string) (SourceType, error) {
	if ref == "" {
		return SourceUnknown, fmt.Errorf("empty chart reference")
	}

	if strings.HasSuffix(ref, ".tgz") || strings.HasSuffix(ref, ".tar.gz") {
		return SourceArchive, nil
	}

	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return SourceDirectory, nil
	}

	return SourceUnknown, fmt.Errorf("cannot determine chart source type for %q", ref)
}

// Load reads a chart from a local directory or archive. Library charts are
// rejected: they render no manifests.
func Load(_ context.Context, ref string) (*chart.Chart, error) {
	sourceType, err := Detect(ref)
	if err != nil {
		return nil, err
	}

	var ch *chart.Chart

	switch sourceType {
	case SourceDirectory:
		ch, err = loadDirectory(ref)
	case SourceArchive:
		ch, err = loadArchive(ref)
	default:
		return nil, fmt.Errorf("unsupported chart source type: %s", sourceType)
	}

	if err != nil {
		return nil, err
	}

	if ch.Metadata != nil && ch.Metadata.Type == "library" {
		return nil, fmt.Errorf("chart %q is a library chart and cannot be converted", ch.Name())
	}

	return ch, nil
}

// loadDirectory reads a chart from a local directory.
func loadDirectory(ref string) (*chart.Chart, error) {
	if _, err := os.Stat(filepath.Join(ref, "Chart.yaml")); err != nil {
		return nil, fmt.Errorf("chart directory %q has no Chart.yaml: %w", ref, err)
	}

	ch, err := helmloader.LoadDir(ref)
	if err != nil {
		return nil, fmt.Errorf("loading chart from %q: %w", ref, err)
	}

	return ch, nil
}

// loadArchive reads a chart from a .tgz archive.
func loadArchive(ref string) (*chart.Chart, error) {
	f, err := os.Open(ref) //nolint:gosec // ref is a user-provided chart path
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w", ref, err)
	}
	defer func() { _ = f.Close() }()

	ch, err := helmloader.LoadArchive(f)
	if err != nil {
		return nil, fmt.Errorf("loading chart archive %q: %w", ref, err)
	}

	return ch, nil
}
