package translate

import (
	"strings"

	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// ControlPlaneWorkload is the reserved workload key for the translator's own
// control-plane deployment. Containers under it carry the tool name as a
// prefix token, which is stripped from the derived service name.
//
// TODO: parameterize this instead of hardcoding the reserved key; it couples
// the generic translator to one specific deployment.
const ControlPlaneWorkload = "crosspose"

// WorkloadKey derives the grouping identifier from a resource name: its first
// hyphen-delimited token ("app-web" → "app").
func WorkloadKey(resourceName string) string {
	if idx := strings.IndexByte(resourceName, '-'); idx > 0 {
		return resourceName[:idx]
	}

	return resourceName
}

// serviceName derives a deterministic compose service name from the workload
// key and container name, unique within the (workload, OS) pair. Collisions
// are resolved by prefixing the resource name, never randomly.
func (r *run) serviceName(workload, resourceName, containerName string, os platform.OS) string {
	name := containerName

	if workload == ControlPlaneWorkload {
		name = strings.TrimPrefix(name, ControlPlaneWorkload+"-")
	} else if !strings.HasPrefix(name, workload+"-") && name != workload {
		name = workload + "-" + name
	}

	candidate := name
	for r.usedNames[nameKey(workload, os, candidate)] {
		candidate = resourceName + "-" + candidate
	}

	r.usedNames[nameKey(workload, os, candidate)] = true

	return candidate
}

func nameKey(workload string, os platform.OS, name string) string {
	return workload + "|" + string(os) + "|" + name
}
