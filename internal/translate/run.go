// Package translate implements the manifest-to-compose translation pipeline:
// workload extraction, OS partitioning, port allocation, environment and
// volume resolution, and emission of compose files plus the conversion report.
package translate

import (
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/manifest"
	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

// Host ports are allocated from this fixed ephemeral range.
const (
	portRangeStart = 60000
	portRangeEnd   = 65000
)

// DefaultNetwork is the shared compose network joined by every emitted
// service when the caller does not name one.
const DefaultNetwork = "crosspose"

// Options configures one translation invocation.
type Options struct {
	// OutputDir receives the compose files, the report, and the
	// configmaps/ and secrets/ bind-mount source trees. It is treated as
	// owned exclusively by this run.
	OutputDir string

	// Network is the shared compose network name (default "crosspose").
	Network string

	// IncludeInfra emits one compose file per catalogued infra service.
	IncludeInfra bool

	// RemapServicePorts rewrites in-cluster DNS names in environment values
	// to localhost:<hostPort> using the run's port map.
	RemapServicePorts bool
}

// Result holds the outcome of one translation run.
type Result struct {
	// Report is the conversion audit written to conversion-report.yaml.
	Report *compose.Report

	// Files lists the written compose file names, in emission order.
	Files []string
}

// run is the mutable state scoped to a single translation invocation. It must
// not be shared across concurrent invocations; the output directory is
// assumed to have a single writer.
type run struct {
	rctx   *rules.RuntimeContext
	opts   Options
	logger *slog.Logger
	rng    *rand.Rand

	// usedPorts enforces host-port uniqueness within the run.
	usedPorts map[int]bool

	// usedNames enforces service-name uniqueness per (workload, OS) pair.
	usedNames map[string]bool

	// portMap maps lowercased service name → container port → host port.
	portMap map[string]map[int]int

	// servicePorts maps lowercased Service resource name → declared port →
	// target port, registered by Service documents.
	servicePorts map[string]map[int]int

	// pending pairs each draft with the manifest nodes the resolver needs.
	pending []pendingService

	report compose.Report
}

// pendingService is a draft awaiting environment and volume resolution.
type pendingService struct {
	draft      *compose.ServiceDraft
	container  manifest.Node
	podVolumes map[string]manifest.Node
}

func newRun(rctx *rules.RuntimeContext, opts Options, logger *slog.Logger) *run {
	if opts.Network == "" {
		opts.Network = DefaultNetwork
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &run{
		rctx:         rctx,
		opts:         opts,
		logger:       logger,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		usedPorts:    make(map[int]bool),
		usedNames:    make(map[string]bool),
		portMap:      make(map[string]map[int]int),
		servicePorts: make(map[string]map[int]int),
	}
}

// allocatePort picks a random unused host port from the ephemeral range and
// marks it used for the rest of the run.
func (r *run) allocatePort() int {
	for {
		port := portRangeStart + r.rng.Intn(portRangeEnd-portRangeStart)
		if !r.usedPorts[port] {
			r.usedPorts[port] = true
			return port
		}
	}
}

// recordPort remembers a host-port allocation for later URL remapping, and
// registers the proxy requirement for WSL-hosted services.
func (r *run) recordPort(serviceName string, containerPort, hostPort int, os platform.OS) {
	key := strings.ToLower(serviceName)
	if r.portMap[key] == nil {
		r.portMap[key] = make(map[int]int)
	}

	r.portMap[key][containerPort] = hostPort

	// Linux containers publish behind the WSL NAT boundary; windows
	// containers bind directly on the host.
	if !os.IsWindows() {
		r.report.AddPortProxy(hostPort, r.opts.Network)
	}
}

// hostPortFor resolves a host port for an in-cluster host reference. The
// lookup first tries the direct service port map, then translates through
// declared Service ports. When the URL carries no port, a service with
// exactly one allocation resolves to it.
func (r *run) hostPortFor(name string, port int, hasPort bool) (int, bool) {
	key := strings.ToLower(name)

	allocations := r.portMap[key]

	if !hasPort {
		if len(allocations) == 1 {
			for _, hp := range allocations {
				return hp, true
			}
		}

		return 0, false
	}

	if hp, ok := allocations[port]; ok {
		return hp, true
	}

	if target, ok := r.servicePorts[key][port]; ok {
		if hp, ok := allocations[target]; ok {
			return hp, true
		}
	}

	return 0, false
}
