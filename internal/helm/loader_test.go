package helm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestChart(t *testing.T, chartType string) string {
	t.Helper()

	dir := t.TempDir()

	chartYAML := `apiVersion: v2
name: test-app
version: 1.0.0
`
	if chartType != "" {
		chartYAML += "type: " + chartType + "\n"
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chart.yaml"), []byte(chartYAML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "templates", "deployment.yaml"),
		[]byte("apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: {{ .Chart.Name }}\n"),
		0o644,
	))

	return dir
}

func TestDetect(t *testing.T) {
	dir := writeTestChart(t, "")

	sourceType, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, SourceDirectory, sourceType)

	sourceType, err = Detect("chart-1.0.0.tgz")
	require.NoError(t, err)
	assert.Equal(t, SourceArchive, sourceType)

	sourceType, err = Detect("chart-1.0.0.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, SourceArchive, sourceType)

	_, err = Detect("")
	assert.Error(t, err)

	_, err = Detect(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestSourceType_String(t *testing.T) {
	assert.Equal(t, "directory", SourceDirectory.String())
	assert.Equal(t, "archive", SourceArchive.String())
	assert.Equal(t, "unknown", SourceUnknown.String())
}

func TestLoad_Directory(t *testing.T) {
	dir := writeTestChart(t, "")

	ch, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "test-app", ch.Name())
	assert.Equal(t, "1.0.0", ch.Metadata.Version)
}

func TestLoad_RejectsLibraryChart(t *testing.T) {
	dir := writeTestChart(t, "library")

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library chart")
}

func TestLoad_MissingChartYAML(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
}
