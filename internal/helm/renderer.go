package helm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
	"helm.sh/helm/v3/pkg/strvals"
)

// RenderOptions configures template rendering.
type RenderOptions struct {
	ReleaseName string
	Namespace   string
	Strict      bool
}

// ValuesOptions configures how user-supplied values are merged.
type ValuesOptions struct {
	// ValueFiles is a list of YAML files to merge (last wins).
	ValueFiles []string

	// Values is a list of key=value pairs (dotted paths for nested values).
	Values []string

	// StringValues is a list of key=value pairs forced to string type.
	StringValues []string

	// FileValues is a list of key=filepath pairs where values come from files.
	FileValues []string
}

// Render executes the chart templates and returns the combined multi-document
// manifest text.
func Render(ctx context.Context, ch *chart.Chart, vals map[string]interface{}, opts RenderOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("rendering cancelled: %w", ctx.Err())
	default:
	}

	if opts.ReleaseName == "" {
		opts.ReleaseName = "release"
	}

	if opts.Namespace == "" {
		opts.Namespace = "default"
	}

	releaseOptions := chartutil.ReleaseOptions{
		Name:      opts.ReleaseName,
		Namespace: opts.Namespace,
		Revision:  1,
		IsInstall: true,
	}

	valuesToRender, err := chartutil.ToRenderValues(ch, vals, releaseOptions, nil)
	if err != nil {
		return nil, fmt.Errorf("preparing render values: %w", err)
	}

	eng := engine.Engine{Strict: opts.Strict, LintMode: false}

	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("rendering templates: %w", err)
	}

	return combineManifests(rendered), nil
}

// MergeValues merges chart defaults with user-supplied overrides following
// Helm conventions: chart defaults < value files < --set/--set-string/--set-file.
func MergeValues(ch *chart.Chart, vopts ValuesOptions) (map[string]interface{}, error) {
	base := make(map[string]interface{})

	// Deep-copy chart defaults so overrides never mutate chart.Values.
	if ch.Values != nil {
		base = chartutil.CoalesceTables(base, ch.Values)
	}

	for _, f := range vopts.ValueFiles {
		data, err := os.ReadFile(f) //nolint:gosec // f is a user-provided values file path
		if err != nil {
			return nil, fmt.Errorf("reading values file %q: %w", f, err)
		}

		fileVals, err := chartutil.ReadValues(data)
		if err != nil {
			return nil, fmt.Errorf("parsing values file %q: %w", f, err)
		}

		base = chartutil.CoalesceTables(fileVals, base)
	}

	for _, v := range vopts.Values {
		if err := strvals.ParseInto(v, base); err != nil {
			return nil, fmt.Errorf("parsing --set %q: %w", v, err)
		}
	}

	for _, v := range vopts.StringValues {
		if err := strvals.ParseIntoString(v, base); err != nil {
			return nil, fmt.Errorf("parsing --set-string %q: %w", v, err)
		}
	}

	for _, v := range vopts.FileValues {
		key, file, found := strings.Cut(v, "=")
		if !found {
			return nil, fmt.Errorf("invalid --set-file format %q: expected key=filepath", v)
		}

		data, err := os.ReadFile(file) //nolint:gosec // file is a user-provided values path
		if err != nil {
			return nil, fmt.Errorf("reading --set-file %q: %w", file, err)
		}

		if err := strvals.ParseIntoString(key+"="+string(data), base); err != nil {
			return nil, fmt.Errorf("applying --set-file %q: %w", v, err)
		}
	}

	return base, nil
}

// combineManifests merges rendered templates into a single multi-document
// YAML, skipping NOTES.txt and empty output.
func combineManifests(rendered map[string]string) []byte {
	keys := make([]string, 0, len(rendered))
	for k := range rendered {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var buf bytes.Buffer

	for _, k := range keys {
		if strings.HasSuffix(k, "NOTES.txt") {
			continue
		}

		trimmed := strings.TrimSpace(rendered[k])
		if trimmed == "" {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("---\n")
		}

		buf.WriteString(trimmed)
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}
