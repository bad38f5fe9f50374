package translate

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/manifest"
	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// Unconverted-record reasons.
const (
	reasonUnsupportedKind = "Unsupported kind"
	reasonNoContainers    = "No containers found"
)

// osNodeSelector is the node-selector label carrying the target OS.
const osNodeSelector = "kubernetes.io/os"

// isWorkload reports whether the kind produces compose services: the
// long-running Deployment and the run-to-completion Job.
func isWorkload(gvk schema.GroupVersionKind) bool {
	switch gvk.Kind {
	case "Deployment":
		return gvk.Group == "apps"
	case "Job":
		return gvk.Group == "batch"
	}

	return false
}

// isService reports whether the kind registers declared ports without
// producing a service.
func isService(gvk schema.GroupVersionKind) bool {
	return (gvk.Group == "" || gvk.Group == "core") && gvk.Kind == "Service"
}

// processDocument routes one normalized document through the extractor.
func (r *run) processDocument(doc *manifest.Document) {
	switch {
	case isWorkload(doc.GVK):
		r.extractWorkload(doc)

	case isService(doc.GVK):
		r.registerServicePorts(doc)

	default:
		r.logger.Debug("skipping unsupported resource",
			slog.String("resource", doc.QualifiedName()))
		r.report.AddUnconverted(doc.Name, doc.Kind(), reasonUnsupportedKind)
	}
}

// registerServicePorts records a Service document's port → targetPort pairs
// so in-cluster URLs naming the Service can be remapped later. No compose
// service and no audit entry is produced.
func (r *run) registerServicePorts(doc *manifest.Document) {
	ports := doc.Root.ItemsAt("spec", "ports")
	if len(ports) == 0 {
		return
	}

	key := strings.ToLower(doc.Name)
	if r.servicePorts[key] == nil {
		r.servicePorts[key] = make(map[int]int)
	}

	for _, p := range ports {
		port, err := scalarInt(p, "port")
		if err != nil {
			continue
		}

		target, err := scalarInt(p, "targetPort")
		if err != nil {
			target = port
		}

		r.servicePorts[key][port] = target
	}

	r.logger.Debug("registered service ports",
		slog.String("service", doc.Name),
		slog.Int("count", len(r.servicePorts[key])))
}

// extractWorkload splits a workload document into one draft per container and
// allocates host ports. Environment and volume resolution happens later, once
// every workload's ports are known.
func (r *run) extractWorkload(doc *manifest.Document) {
	podSpec, ok := doc.Root.Lookup("spec", "template", "spec")
	if !ok {
		r.report.AddUnconverted(doc.Name, doc.Kind(), reasonNoContainers)
		return
	}

	containers := podSpec.ItemsAt("containers")
	if len(containers) == 0 {
		r.report.AddUnconverted(doc.Name, doc.Kind(), reasonNoContainers)
		return
	}

	workload := WorkloadKey(doc.Name)
	os := platform.Parse(podSpec.StringAt("nodeSelector", osNodeSelector))
	podVolumes := namedVolumes(podSpec)

	restart := "unless-stopped"
	if doc.Kind() == "Job" {
		restart = "no"
	}

	for _, container := range containers {
		name := container.StringAt("name")
		if name == "" {
			continue
		}

		draft := &compose.ServiceDraft{
			Name:         r.serviceName(workload, doc.Name, name, os),
			Workload:     workload,
			ResourceName: doc.Name,
			ResourceKind: doc.Kind(),
			OS:           os,
			Image:        container.StringAt("image"),
			Restart:      restart,
			Environment:  make(map[string]string),
		}

		// WSL-hosted containers keep host.docker.internal working against
		// the distribution's own gateway.
		if !os.IsWindows() {
			draft.ExtraHosts = []string{"host.docker.internal:host-gateway"}
		}

		r.allocateContainerPorts(draft, container)

		r.pending = append(r.pending, pendingService{
			draft:      draft,
			container:  container,
			podVolumes: podVolumes,
		})
	}

	r.report.AddConverted(compose.ConvertedResource{
		Name:     doc.Name,
		Kind:     doc.Kind(),
		Workload: workload,
		OS:       os,
		File:     compose.ServiceFileName(workload, os),
	})
}

// allocateContainerPorts assigns a host port to every declared container port
// and records the allocations for URL remapping.
func (r *run) allocateContainerPorts(draft *compose.ServiceDraft, container manifest.Node) {
	for _, p := range container.ItemsAt("ports") {
		containerPort, err := scalarInt(p, "containerPort")
		if err != nil {
			r.logger.Warn("skipping malformed container port",
				slog.String("service", draft.Name),
				slog.String("error", err.Error()))

			continue
		}

		hostPort := r.allocatePort()
		r.recordPort(draft.Name, containerPort, hostPort, draft.OS)

		draft.Ports = append(draft.Ports, fmt.Sprintf("%d:%d", hostPort, containerPort))
	}
}

// namedVolumes indexes the pod template's declared volumes by name.
func namedVolumes(podSpec manifest.Node) map[string]manifest.Node {
	volumes := make(map[string]manifest.Node)

	for _, v := range podSpec.ItemsAt("volumes") {
		if name := v.StringAt("name"); name != "" {
			volumes[name] = v
		}
	}

	return volumes
}

// scalarInt reads an integer scalar field from a mapping node.
func scalarInt(n manifest.Node, key string) (int, error) {
	raw := n.StringAt(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}

	return value, nil
}
