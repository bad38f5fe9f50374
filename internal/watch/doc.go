// Package watch re-runs the conversion pipeline whenever the chart sources,
// values files, or translation rules change on disk, and reports what changed
// in the conversion report between runs.
package watch
