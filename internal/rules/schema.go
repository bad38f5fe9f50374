// Package rules implements the translation rule runtime: the catalog of
// supporting infrastructure and secret definitions, the token-resolution
// language, and secret-file materialization.
package rules

// RuleSet is one operator-authored translation rule set. The Match glob is
// evaluated against the chart name before the runtime context is built; the
// context itself only ever sees already-matched rule sets.
type RuleSet struct {
	// Match is a glob pattern matched against the chart name
	// (e.g. "my-app-*"). An empty pattern matches every chart.
	Match string `yaml:"match"`

	// Infra lists supporting services (databases, queues, emulators) to
	// scaffold alongside the converted workloads.
	Infra []InfraDefinition `yaml:"infra"`

	// SecretKeyRefs maps a secret name to the entries it provides.
	SecretKeyRefs map[string][]SecretDefinition `yaml:"secret-key-refs"`
}

// InfraDefinition declares one supporting infrastructure service.
// Either Image or Build must be set; definitions with neither are dropped.
type InfraDefinition struct {
	Name        string            `yaml:"name"`
	Image       string            `yaml:"image"`
	Command     string            `yaml:"command"`
	Environment map[string]string `yaml:"environment"`
	Ports       []string          `yaml:"ports"`
	Volumes     []string          `yaml:"volumes"`
	Healthcheck map[string]any    `yaml:"healthcheck"`
	Build       map[string]any    `yaml:"build"`

	// ComposeFile overrides the generated compose file name
	// (default: docker-compose.<name>.<os>.yml).
	ComposeFile string `yaml:"compose-file"`

	// OS is the target operating system ("linux" or "windows", default linux).
	OS string `yaml:"os"`
}

// Secret definition kinds.
const (
	SecretTypeLiteral = "literal"
	SecretTypeFile    = "file"
)

// SecretDefinition declares one entry of a secret. The Options bag is
// kind-specific: literal entries require "value"; file entries require
// "filename" and accept "value", "convert_from_base64" (default true), and
// "kubernetes-layout" (default true).
type SecretDefinition struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}
