package translate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

const volumeManifest = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: app-web
spec:
  template:
    spec:
      volumes:
      - name: config
        configMap:
          name: app-settings
      - name: certs
        secret:
          secretName: tls-secret
      - name: scratch
        emptyDir: {}
      containers:
      - name: app-web
        image: registry.local/app-web:1.0
        volumeMounts:
        - name: config
          mountPath: /etc/app
          readOnly: true
        - name: certs
          mountPath: /certs
        - name: scratch
          mountPath: /tmp/scratch
        - name: ghost
          mountPath: /ghost
`

const windowsVolumeManifest = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: app-legacy
spec:
  template:
    spec:
      nodeSelector:
        kubernetes.io/os: windows
      volumes:
      - name: certs
        secret:
          secretName: tls-secret
      containers:
      - name: legacy
        image: registry.local/legacy:1.0
        volumeMounts:
        - name: certs
          mountPath: /certs
          subPath: cert.pfx
`

func volumeRules() *rules.RuntimeContext {
	sets := []rules.RuleSet{{
		SecretKeyRefs: map[string][]rules.SecretDefinition{
			"tls-secret": {{
				Name: "cert.pfx",
				Type: "file",
				Options: map[string]any{
					"filename": "cert.pfx",
					"value":    "aGVsbG8=",
				},
			}},
		},
	}}

	return rules.BuildContext(sets, testLogger())
}

func TestTranslate_Volumes(t *testing.T) {
	outDir := t.TempDir()
	ctx := logging.NewContext(context.Background(), testLogger())

	result, err := Translate(ctx, volumeRules(), []byte(volumeManifest), Options{OutputDir: outDir})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)

	doc := readComposeFile(t, outDir, "docker-compose.app.linux.yml")
	svc := doc.Services["app-web"]

	// The emptyDir volume and the undeclared mount are skipped.
	assert.Equal(t, []string{
		"./configmaps/app-settings:/etc/app:ro",
		"./secrets/tls-secret:/certs",
	}, svc.Volumes)

	// The configmap bind source directory is created for the operator to
	// fill in.
	info, err := os.Stat(filepath.Join(outDir, "configmaps", "app-settings"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Secret files are materialized in the kubernetes layout.
	_, err = os.Stat(filepath.Join(outDir, "secrets", "tls-secret", "..data", "cert.pfx"))
	assert.NoError(t, err)
}

func TestTranslate_WindowsVolumePaths(t *testing.T) {
	outDir := t.TempDir()
	ctx := logging.NewContext(context.Background(), testLogger())

	_, err := Translate(ctx, volumeRules(), []byte(windowsVolumeManifest), Options{OutputDir: outDir})
	require.NoError(t, err)

	doc := readComposeFile(t, outDir, "docker-compose.app.windows.yml")
	svc := doc.Services["app-legacy"]

	// Windows services get backslashed host paths and a synthesized drive
	// letter for POSIX-style container paths.
	assert.Equal(t, []string{`.\secrets\tls-secret\cert.pfx:C:\certs`}, svc.Volumes)
}

func TestTranslate_UnsafeSecretSubPathSkipsMount(t *testing.T) {
	manifest := `apiVersion: apps/v1
kind: Deployment
metadata:
  name: app-web
spec:
  template:
    spec:
      volumes:
      - name: certs
        secret:
          secretName: tls-secret
      containers:
      - name: app-web
        image: registry.local/app-web:1.0
        volumeMounts:
        - name: certs
          mountPath: /certs
          subPath: ../../outside
`

	outDir := t.TempDir()
	ctx := logging.NewContext(context.Background(), testLogger())

	result, err := Translate(ctx, volumeRules(), []byte(manifest), Options{OutputDir: outDir})
	require.NoError(t, err)

	doc := readComposeFile(t, outDir, "docker-compose.app.linux.yml")
	assert.Empty(t, doc.Services["app-web"].Volumes)

	// The workload itself still converts.
	assert.Len(t, result.Report.Converted, 1)
}
