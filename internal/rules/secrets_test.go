package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secretsContext(defs map[string][]SecretDefinition) *RuntimeContext {
	return BuildContext([]RuleSet{{SecretKeyRefs: defs}}, testLogger())
}

func TestMaterializeSecret_KubernetesLayout(t *testing.T) {
	rc := secretsContext(map[string][]SecretDefinition{
		"tls-secret": {
			{
				Name: "cert.pfx",
				Type: "file",
				Options: map[string]any{
					"filename": "cert.pfx",
					"value":    "aGVsbG8=", // "hello"
				},
			},
		},
	})

	outDir := t.TempDir()

	mount, err := rc.MaterializeSecret(outDir, "tls-secret", "")
	require.NoError(t, err)
	assert.Equal(t, "secrets/tls-secret", mount.Dir)
	assert.Equal(t, "secrets/tls-secret", mount.HostPath())

	// The payload lives under ..data with a flat copy beside it.
	dataFile := filepath.Join(outDir, "secrets", "tls-secret", "..data", "cert.pfx")
	flatFile := filepath.Join(outDir, "secrets", "tls-secret", "cert.pfx")

	payload, err := os.ReadFile(dataFile)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	payload, err = os.ReadFile(flatFile)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))
}

func TestMaterializeSecret_FlatLayout(t *testing.T) {
	rc := secretsContext(map[string][]SecretDefinition{
		"cfg": {
			{
				Name: "app.conf",
				Type: "file",
				Options: map[string]any{
					"filename":            "app.conf",
					"value":               "plain text",
					"convert_from_base64": false,
					"kubernetes-layout":   false,
				},
			},
		},
	})

	outDir := t.TempDir()

	_, err := rc.MaterializeSecret(outDir, "cfg", "")
	require.NoError(t, err)

	payload, err := os.ReadFile(filepath.Join(outDir, "secrets", "cfg", "app.conf"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(payload))

	// No kubernetes data directory in flat layout.
	_, err = os.Stat(filepath.Join(outDir, "secrets", "cfg", "..data"))
	assert.True(t, os.IsNotExist(err))
}

func TestMaterializeSecret_Idempotent(t *testing.T) {
	rc := secretsContext(map[string][]SecretDefinition{
		"s": {
			{
				Name: "token",
				Type: "file",
				Options: map[string]any{
					"filename":            "token",
					"value":               "first",
					"convert_from_base64": false,
				},
			},
		},
	})

	outDir := t.TempDir()

	_, err := rc.MaterializeSecret(outDir, "s", "")
	require.NoError(t, err)

	// Simulate a local edit and re-run: existing files are never rewritten.
	target := filepath.Join(outDir, "secrets", "s", "token")
	require.NoError(t, os.WriteFile(target, []byte("edited"), 0o600))

	_, err = rc.MaterializeSecret(outDir, "s", "")
	require.NoError(t, err)

	payload, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(payload))
}

func TestMaterializeSecret_SubPath(t *testing.T) {
	rc := secretsContext(nil)

	mount, err := rc.MaterializeSecret(t.TempDir(), "empty", "inner/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "inner/file.txt", mount.SubPath)
	assert.Equal(t, "secrets/empty/inner/file.txt", mount.HostPath())
}

func TestMaterializeSecret_RejectsTraversal(t *testing.T) {
	rc := secretsContext(nil)

	_, err := rc.MaterializeSecret(t.TempDir(), "s", "../../etc/passwd")
	require.Error(t, err)
	assert.True(t, IsUnsafePath(err))
}

func TestMaterializeSecret_SkipsUnsafeFilename(t *testing.T) {
	rc := secretsContext(map[string][]SecretDefinition{
		"s": {
			{
				Name: "escape",
				Type: "file",
				Options: map[string]any{
					"filename":            "../outside.txt",
					"value":               "x",
					"convert_from_base64": false,
				},
			},
			{
				Name: "safe",
				Type: "file",
				Options: map[string]any{
					"filename":            "inside.txt",
					"value":               "y",
					"convert_from_base64": false,
				},
			},
		},
	})

	outDir := t.TempDir()

	// The unsafe entry is skipped; the run itself succeeds and the safe
	// entry still materializes.
	_, err := rc.MaterializeSecret(outDir, "s", "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "outside.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(outDir, "secrets", "s", "inside.txt"))
	assert.NoError(t, err)
}

func TestMaterializeSecret_SkipsInvalidBase64(t *testing.T) {
	rc := secretsContext(map[string][]SecretDefinition{
		"s": {
			{
				Name: "bad",
				Type: "file",
				Options: map[string]any{
					"filename": "bad.bin",
					"value":    "%%% not base64 %%%",
				},
			},
		},
	})

	outDir := t.TempDir()

	_, err := rc.MaterializeSecret(outDir, "s", "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "secrets", "s", "bad.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestMaterializeSecret_UnknownSecret(t *testing.T) {
	rc := secretsContext(nil)

	mount, err := rc.MaterializeSecret(t.TempDir(), "ghost", "")
	require.NoError(t, err)
	assert.Equal(t, "secrets/ghost", mount.Dir)
}

func TestSecretMount_HostPath(t *testing.T) {
	assert.Equal(t, "secrets/s", SecretMount{Dir: "secrets/s"}.HostPath())
	assert.Equal(t, "secrets/s/f.txt", SecretMount{Dir: "secrets/s", SubPath: "f.txt"}.HostPath())
}
