package compose

import (
	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// ReportFileName is the conversion report written alongside the compose files.
const ReportFileName = "conversion-report.yaml"

// ConvertedResource is the audit entry for a successfully translated resource.
type ConvertedResource struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Workload string      `json:"workload"`
	OS       platform.OS `json:"os"`
	File     string      `json:"file"`
}

// UnconvertedResource is the audit entry for a resource the translator could
// not handle, with the reason it was skipped.
type UnconvertedResource struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// InfraResource is one inventory row for a scaffolded infra service.
type InfraResource struct {
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	ComposeFile string `json:"composeFile"`
}

// PortProxyRequirement signals that host-level traffic forwarding must be
// configured for the given port to be reachable across the virtualization
// boundary.
type PortProxyRequirement struct {
	Port    int    `json:"port"`
	Network string `json:"network"`
}

// Report is the machine-readable summary of one translation run.
type Report struct {
	Converted             []ConvertedResource    `json:"converted"`
	Unconverted           []UnconvertedResource  `json:"unconverted"`
	InfraResources        []InfraResource        `json:"infraResources,omitempty"`
	PortProxyRequirements []PortProxyRequirement `json:"portProxyRequirements,omitempty"`
}

// AddConverted appends a converted audit entry.
func (r *Report) AddConverted(rec ConvertedResource) {
	r.Converted = append(r.Converted, rec)
}

// AddUnconverted appends an unconverted audit entry.
func (r *Report) AddUnconverted(name, kind, reason string) {
	r.Unconverted = append(r.Unconverted, UnconvertedResource{
		Name:   name,
		Kind:   kind,
		Reason: reason,
	})
}

// AddPortProxy records a port-proxy requirement, deduplicated by port.
func (r *Report) AddPortProxy(port int, network string) {
	for _, existing := range r.PortProxyRequirements {
		if existing.Port == port {
			return
		}
	}

	r.PortProxyRequirements = append(r.PortProxyRequirements, PortProxyRequirement{
		Port:    port,
		Network: network,
	})
}
