// Package compose turns service drafts and the infra catalog into compose
// files plus the machine-readable conversion report.
package compose

import (
	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// ServiceDraft is one compose service in the making: built by the workload
// extractor, mutated by the environment/volume resolver, and consumed once by
// the emitter.
type ServiceDraft struct {
	// Name is the unique service name within the (workload, OS) pair.
	Name string

	// Workload groups services into output files.
	Workload string

	// ResourceName and ResourceKind identify the source manifest document.
	ResourceName string
	ResourceKind string

	// OS is the container target.
	OS platform.OS

	Image       string
	Restart     string
	Ports       []string
	Environment map[string]string
	Volumes     []string
	ExtraHosts  []string

	// DependsOn holds infra names the service needs started first. Only
	// same-OS infra may ever appear here.
	DependsOn []string
}

// AddDependency records an infra dependency edge, keeping the list
// duplicate-free while preserving insertion order.
func (d *ServiceDraft) AddDependency(infraName string) {
	for _, existing := range d.DependsOn {
		if existing == infraName {
			return
		}
	}

	d.DependsOn = append(d.DependsOn, infraName)
}
