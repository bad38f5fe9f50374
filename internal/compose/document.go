package compose

// File is one emitted compose document. Only the subset of the compose
// schema the translator produces is modeled; semantic validation of the
// result is left to the compose engines.
type File struct {
	Services map[string]Service `yaml:"services"`
	Networks map[string]Network `yaml:"networks,omitempty"`
}

// Service is one compose service entry.
type Service struct {
	Image       string            `yaml:"image,omitempty"`
	Build       map[string]any    `yaml:"build,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Restart     string            `yaml:"restart,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	ExtraHosts  []string          `yaml:"extra_hosts,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Healthcheck map[string]any    `yaml:"healthcheck,omitempty"`
	Networks    []string          `yaml:"networks,omitempty"`
}

// Network is a compose network declaration. Every emitted document joins the
// run's shared network so services resolve each other by name.
type Network struct {
	Name string `yaml:"name"`
}
