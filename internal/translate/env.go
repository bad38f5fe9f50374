package translate

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/manifest"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

// clusterHostPattern matches in-cluster DNS names of the default namespace,
// with an optional port.
var clusterHostPattern = regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9-]*)\.default\.svc\.cluster\.local(?::(\d+))?\b`)

// loopbackPattern matches whole-token host references that only resolve on
// the host the container runs beside.
var loopbackPattern = regexp.MustCompile(`\b(?:host\.docker\.internal|localhost|127\.0\.0\.1)\b`)

// resolveEnvironment fills the draft's environment from the container's env
// entries: literal values go through DNS remapping and detokenization,
// secret-backed values through the rule runtime context. Infra dependency
// edges are added for same-OS references only.
func (r *run) resolveEnvironment(draft *compose.ServiceDraft, container manifest.Node) {
	for _, entry := range container.ItemsAt("env") {
		name := entry.StringAt("name")
		if name == "" {
			continue
		}

		if value, ok := entry.Get("value"); ok {
			r.resolveLiteralEnv(draft, name, value.String())
			continue
		}

		if ref, ok := entry.Lookup("valueFrom", "secretKeyRef"); ok {
			r.resolveSecretEnv(draft, name, ref)
			continue
		}

		r.logger.Warn("skipping environment entry with unsupported source",
			slog.String("service", draft.Name),
			slog.String("env", name))
	}
}

// resolveLiteralEnv resolves one literal environment value.
func (r *run) resolveLiteralEnv(draft *compose.ServiceDraft, name, raw string) {
	value := raw

	if r.opts.RemapServicePorts {
		value = r.remapClusterHosts(value)
	}

	resolved := r.rctx.Detokenize(value, draft.OS)

	if draft.OS.IsWindows() {
		resolved = rewriteLoopback(resolved)
	}

	draft.Environment[name] = resolved

	r.addInfraDependencies(draft, raw)
}

// resolveSecretEnv resolves one secretKeyRef-backed environment value.
func (r *run) resolveSecretEnv(draft *compose.ServiceDraft, name string, ref manifest.Node) {
	secretName := ref.StringAt("name")
	key := ref.StringAt("key")

	value, infraRefs, ok := r.rctx.ResolveSecretValue(secretName, key, draft.OS)
	if !ok {
		return
	}

	if draft.OS.IsWindows() {
		value = rewriteLoopback(value)
	}

	draft.Environment[name] = value

	for _, infra := range infraRefs {
		if r.rctx.IsInfraCompatible(infra, draft.OS) {
			draft.AddDependency(infra)
		}
	}
}

// addInfraDependencies computes dependency edges from the raw value, gated on
// OS compatibility.
func (r *run) addInfraDependencies(draft *compose.ServiceDraft, raw string) {
	for _, infra := range r.rctx.InfraNamesIn(raw) {
		if r.rctx.IsInfraCompatible(infra, draft.OS) {
			draft.AddDependency(infra)
		}
	}
}

// remapClusterHosts rewrites in-cluster DNS references to localhost with the
// allocated host port. References the port map cannot account for are left
// unchanged.
func (r *run) remapClusterHosts(value string) string {
	return clusterHostPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := clusterHostPattern.FindStringSubmatch(match)
		name := groups[1]

		port := 0
		hasPort := groups[2] != ""

		if hasPort {
			port, _ = strconv.Atoi(groups[2])
		}

		hostPort, ok := r.hostPortFor(name, port, hasPort)
		if !ok {
			r.logger.Warn("no host port allocation for in-cluster reference",
				slog.String("host", match))

			return match
		}

		return "localhost:" + strconv.Itoa(hostPort)
	})
}

// rewriteLoopback substitutes the NAT gateway placeholder for loopback hosts.
// Windows containers cannot reach the WSL distribution's loopback directly;
// the runtime orchestrator fills in the actual bridging address.
func rewriteLoopback(value string) string {
	// ReplaceAllString would read the placeholder's $-prefix as a capture
	// group reference and expand it to nothing.
	return loopbackPattern.ReplaceAllLiteralString(value, rules.NATGatewayPlaceholder)
}
