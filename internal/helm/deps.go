package helm

import (
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"helm.sh/helm/v3/pkg/chart"
)

// DependencyStatus is the resolution state of one declared chart dependency.
type DependencyStatus string

const (
	// DependencyOK means the dependency is vendored in charts/.
	DependencyOK DependencyStatus = "ok"
	// DependencyMissing means the dependency is declared but not vendored.
	DependencyMissing DependencyStatus = "missing"
	// DependencyVersionMismatch means the vendored version does not satisfy
	// the declared constraint.
	DependencyVersionMismatch DependencyStatus = "version-mismatch"
)

// DependencyInfo describes a chart dependency and its resolution status.
type DependencyInfo struct {
	Name   string
	Want   string
	Actual string
	Status DependencyStatus
}

// AnalyzeDependencies inspects the chart's declared dependencies against what
// is vendored in charts/. Unresolved dependencies render incomplete manifests,
// so each problem is logged as a warning before rendering proceeds.
func AnalyzeDependencies(ch *chart.Chart, logger *slog.Logger) []DependencyInfo {
	if ch.Metadata == nil || len(ch.Metadata.Dependencies) == 0 {
		return nil
	}

	vendored := make(map[string]*chart.Chart, len(ch.Dependencies()))

	for _, sub := range ch.Dependencies() {
		if sub.Metadata != nil {
			vendored[sub.Metadata.Name] = sub
		}
	}

	infos := make([]DependencyInfo, 0, len(ch.Metadata.Dependencies))

	for _, dep := range ch.Metadata.Dependencies {
		info := DependencyInfo{Name: dep.Name, Want: dep.Version, Status: DependencyOK}

		sub, ok := vendored[dep.Name]

		switch {
		case !ok:
			info.Status = DependencyMissing

			logger.Warn("subchart dependency not vendored",
				slog.String("dependency", dep.Name),
				slog.String("version", dep.Version))

		default:
			info.Actual = sub.Metadata.Version
			if dep.Version != "" && !versionSatisfied(dep.Version, sub.Metadata.Version) {
				info.Status = DependencyVersionMismatch

				logger.Warn("subchart version mismatch",
					slog.String("dependency", dep.Name),
					slog.String("expected", dep.Version),
					slog.String("actual", sub.Metadata.Version))
			}
		}

		infos = append(infos, info)
	}

	if ch.Lock == nil {
		logger.Warn("Chart.lock is missing; dependency versions are not pinned")
	}

	return infos
}

// versionSatisfied checks if actual satisfies the declared constraint using
// the same semver library Helm uses.
func versionSatisfied(constraint, actual string) bool {
	if constraint == actual {
		return true
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}

	v, err := semver.NewVersion(actual)
	if err != nil {
		return false
	}

	return c.Check(v)
}
