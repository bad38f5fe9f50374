package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// docSeparator matches YAML document separators: a line containing only "---"
// optionally followed by whitespace.
var docSeparator = regexp.MustCompile(`(?m)^---\s*$`)

// Document is one normalized manifest document together with the identity
// fields the pipeline branches on.
type Document struct {
	// GVK is derived from apiVersion and kind. Either may be empty for
	// documents that are not Kubernetes resources.
	GVK schema.GroupVersionKind

	// Name is metadata.name.
	Name string

	// Root is the full document tree.
	Root Node
}

// Kind returns the resource kind (e.g. "Deployment").
func (d *Document) Kind() string { return d.GVK.Kind }

// QualifiedName returns "kind/name" for display purposes.
func (d *Document) QualifiedName() string { return d.GVK.Kind + "/" + d.Name }

// DocumentResult is the per-document outcome of normalization. Exactly one of
// Doc and Err is set; the pipeline continues over successful entries and logs
// the failed ones.
type DocumentResult struct {
	Doc *Document
	Err error
}

// SplitDocuments splits a multi-document YAML byte slice into individual
// documents, filtering out empty ones.
func SplitDocuments(data []byte) [][]byte {
	parts := docSeparator.Split(string(data), -1)

	var docs [][]byte

	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			docs = append(docs, []byte(part))
		}
	}

	return docs
}

// Normalize parses multi-document manifest text into one DocumentResult per
// non-empty document. A parse failure on one document never affects the
// others. Documents that parse to an empty tree are omitted entirely.
func Normalize(data []byte) []DocumentResult {
	var results []DocumentResult

	for i, doc := range SplitDocuments(data) {
		root, err := parseDocument(doc)
		if err != nil {
			results = append(results, DocumentResult{
				Err: fmt.Errorf("document %d: %w", i+1, err),
			})

			continue
		}

		if root.IsZero() || root.Len() == 0 {
			continue
		}

		results = append(results, DocumentResult{Doc: newDocument(root)})
	}

	return results
}

// newDocument derives the identity fields from a normalized tree.
func newDocument(root Node) *Document {
	apiVersion := root.StringAt("apiVersion")
	kind := root.StringAt("kind")

	return &Document{
		GVK:  schema.FromAPIVersionAndKind(apiVersion, kind),
		Name: root.StringAt("metadata", "name"),
		Root: root,
	}
}

// parseDocument decodes one YAML document into a Node tree. yaml.Node is used
// as the intermediate form so that mapping order is preserved.
func parseDocument(doc []byte) (Node, error) {
	var yn yaml.Node
	if err := yaml.Unmarshal(doc, &yn); err != nil {
		return Node{}, fmt.Errorf("unmarshaling YAML: %w", err)
	}

	return fromYAML(&yn)
}

// fromYAML converts a yaml.Node subtree into the manifest Node union.
func fromYAML(yn *yaml.Node) (Node, error) {
	switch yn.Kind {
	case yaml.DocumentNode:
		if len(yn.Content) == 0 {
			return Node{}, nil
		}

		return fromYAML(yn.Content[0])

	case yaml.ScalarNode:
		return Scalar(yn.Value), nil

	case yaml.SequenceNode:
		items := make([]Node, 0, len(yn.Content))

		for _, c := range yn.Content {
			item, err := fromYAML(c)
			if err != nil {
				return Node{}, err
			}

			items = append(items, item)
		}

		return Sequence(items...), nil

	case yaml.MappingNode:
		m := NewMapping()

		// Content holds alternating key/value nodes.
		for i := 0; i+1 < len(yn.Content); i += 2 {
			key := yn.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Node{}, fmt.Errorf("line %d: non-scalar mapping key", key.Line)
			}

			value, err := fromYAML(yn.Content[i+1])
			if err != nil {
				return Node{}, err
			}

			m.Set(key.Value, value)
		}

		return m, nil

	case yaml.AliasNode:
		if yn.Alias != nil {
			return fromYAML(yn.Alias)
		}

		return Node{}, nil

	default:
		return Node{}, nil
	}
}
