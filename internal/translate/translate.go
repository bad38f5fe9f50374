package translate

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/logging"
	"github.com/andrewiankidd/crosspose-sub000/internal/manifest"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

// Translate converts rendered manifest text into OS-partitioned compose files
// plus a conversion report, resolving environment tokens and secrets against
// the rule runtime context. The run either completes (possibly with warnings
// and unconverted entries in the report) or aborts on a filesystem failure.
func Translate(ctx context.Context, rctx *rules.RuntimeContext, manifests []byte, opts Options) (*Result, error) {
	logger := logging.FromContext(ctx)

	r := newRun(rctx, opts, logger)

	// Normalize with per-document fault isolation: one malformed document
	// never costs the others their conversion.
	var docs []*manifest.Document

	for _, result := range manifest.Normalize(manifests) {
		if result.Err != nil {
			logger.Warn("skipping malformed manifest document",
				slog.String("error", result.Err.Error()))

			continue
		}

		docs = append(docs, result.Doc)
	}

	// First pass: classify documents, register Service ports, extract
	// drafts and allocate host ports.
	for _, doc := range docs {
		r.processDocument(doc)
	}

	// Second pass: resolve environments and volumes now that every
	// allocation is known.
	for _, p := range r.pending {
		r.resolveEnvironment(p.draft, p.container)

		if err := r.resolveVolumes(p.draft, p.container, p.podVolumes); err != nil {
			return nil, err
		}
	}

	drafts := make([]*compose.ServiceDraft, 0, len(r.pending))
	for _, p := range r.pending {
		drafts = append(drafts, p.draft)
	}

	emitter := compose.NewEmitter(opts.OutputDir, r.opts.Network, logger)

	files, err := emitter.EmitServices(drafts)
	if err != nil {
		return nil, err
	}

	if opts.IncludeInfra {
		inventory, err := emitter.EmitInfra(rctx)
		if err != nil {
			return nil, err
		}

		r.report.InfraResources = inventory

		for _, infra := range rctx.InfraServices() {
			if infra.OS.IsWindows() {
				continue
			}

			for _, spec := range infra.Ports {
				if hostPort, ok := publishedHostPort(spec); ok {
					r.report.AddPortProxy(hostPort, r.opts.Network)
				}
			}
		}

		for _, infra := range rctx.InfraServices() {
			files = append(files, infra.ComposeFile)
		}
	}

	if err := emitter.WriteReport(&r.report); err != nil {
		return nil, err
	}

	logger.Info("translation complete",
		slog.Int("converted", len(r.report.Converted)),
		slog.Int("unconverted", len(r.report.Unconverted)),
		slog.Int("composeFiles", len(files)))

	return &Result{Report: &r.report, Files: files}, nil
}

// publishedHostPort extracts the host side of a "host:container" port spec.
// A bare container port publishes no fixed host port and yields ok=false.
func publishedHostPort(spec string) (int, bool) {
	host, _, found := strings.Cut(spec, ":")
	if !found {
		return 0, false
	}

	port, err := strconv.Atoi(strings.TrimSpace(host))
	if err != nil {
		return 0, false
	}

	return port, true
}
