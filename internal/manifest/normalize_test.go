package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: app-web
spec:
  replicas: 1
---
apiVersion: v1
kind: Service
metadata:
  name: app-web
spec:
  ports:
  - port: 80
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
data:
  key: value
`

func TestSplitDocuments(t *testing.T) {
	docs := SplitDocuments([]byte(sampleManifest))
	assert.Len(t, docs, 3)
}

func TestSplitDocuments_SkipsEmpty(t *testing.T) {
	data := []byte("---\n---\nkind: Pod\n---\n   \n---")
	docs := SplitDocuments(data)
	require.Len(t, docs, 1)
	assert.Contains(t, string(docs[0]), "kind: Pod")
}

func TestNormalize(t *testing.T) {
	results := Normalize([]byte(sampleManifest))
	require.Len(t, results, 3)

	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Doc)
	}

	dep := results[0].Doc
	assert.Equal(t, "Deployment", dep.Kind())
	assert.Equal(t, "apps", dep.GVK.Group)
	assert.Equal(t, "v1", dep.GVK.Version)
	assert.Equal(t, "app-web", dep.Name)
	assert.Equal(t, "Deployment/app-web", dep.QualifiedName())

	svc := results[1].Doc
	assert.Equal(t, "Service", svc.Kind())
	assert.Equal(t, "", svc.GVK.Group)
}

func TestNormalize_FaultIsolation(t *testing.T) {
	data := []byte(`kind: Deployment
metadata:
  name: good-one
---
kind: {broken
  [yaml
---
kind: Service
metadata:
  name: good-two
`)

	results := Normalize(data)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "good-one", results[0].Doc.Name)

	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Doc)

	assert.NoError(t, results[2].Err)
	assert.Equal(t, "good-two", results[2].Doc.Name)
}

func TestNormalize_NestedOrderPreserved(t *testing.T) {
	data := []byte(`kind: ConfigMap
data:
  zulu: "1"
  alpha: "2"
  mike: "3"
`)

	results := Normalize(data)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	dataNode, ok := results[0].Doc.Root.Lookup("data")
	require.True(t, ok)
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, dataNode.Keys())
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]byte("\n---\n# comment only\n")))
}
