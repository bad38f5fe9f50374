package compose

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

// Emitter serializes drafts and the infra catalog into compose files under
// the output directory and finally writes the conversion report.
type Emitter struct {
	outputDir string
	network   string
	logger    *slog.Logger
}

// NewEmitter creates an emitter for one run's output directory and shared
// network.
func NewEmitter(outputDir, network string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Emitter{outputDir: outputDir, network: network, logger: logger}
}

// ServiceFileName returns the compose file name for a (workload, OS) pair.
func ServiceFileName(workload string, os platform.OS) string {
	return fmt.Sprintf("docker-compose.%s.%s.yml", workload, os)
}

// groupKey identifies one output compose document.
type groupKey struct {
	workload string
	os       platform.OS
}

// EmitServices groups drafts by (workload, OS) and writes one compose
// document per group. It returns the written file names in emission order.
func (e *Emitter) EmitServices(drafts []*ServiceDraft) ([]string, error) {
	groups := make(map[groupKey][]*ServiceDraft)

	var order []groupKey

	for _, draft := range drafts {
		key := groupKey{workload: draft.Workload, os: draft.OS}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}

		groups[key] = append(groups[key], draft)
	}

	var files []string

	for _, key := range order {
		doc := File{
			Services: make(map[string]Service, len(groups[key])),
			Networks: e.sharedNetworks(),
		}

		for _, draft := range groups[key] {
			doc.Services[draft.Name] = Service{
				Image:       draft.Image,
				Restart:     draft.Restart,
				Ports:       draft.Ports,
				Environment: draft.Environment,
				Volumes:     draft.Volumes,
				ExtraHosts:  draft.ExtraHosts,
				DependsOn:   draft.DependsOn,
				Networks:    []string{e.network},
			}
		}

		name := ServiceFileName(key.workload, key.os)
		if err := e.writeYAML(name, doc); err != nil {
			return nil, err
		}

		e.logger.Info("compose file written",
			slog.String("file", name),
			slog.Int("services", len(groups[key])))

		files = append(files, name)
	}

	return files, nil
}

// EmitInfra writes one compose document per catalogued infra service and
// returns the matching report inventory rows.
func (e *Emitter) EmitInfra(rctx *rules.RuntimeContext) ([]InfraResource, error) {
	var inventory []InfraResource

	for _, infra := range rctx.InfraServices() {
		doc := File{
			Services: map[string]Service{
				infra.Name: {
					Image:       infra.Image,
					Build:       infra.Build,
					Command:     infra.Command,
					Ports:       infra.Ports,
					Environment: e.resolvedInfraEnvironment(rctx, infra),
					Volumes:     infra.Volumes,
					Healthcheck: infra.Healthcheck,
					Networks:    []string{e.network},
				},
			},
			Networks: e.sharedNetworks(),
		}

		if err := e.writeYAML(infra.ComposeFile, doc); err != nil {
			return nil, err
		}

		e.logger.Info("infra compose file written",
			slog.String("infra", infra.Name),
			slog.String("file", infra.ComposeFile))

		inventory = append(inventory, InfraResource{
			Name:        infra.Name,
			Image:       infra.Image,
			ComposeFile: infra.ComposeFile,
		})
	}

	return inventory, nil
}

// resolvedInfraEnvironment detokenizes an infra's own environment from its
// own OS perspective.
func (e *Emitter) resolvedInfraEnvironment(rctx *rules.RuntimeContext, infra *rules.InfraServiceContext) map[string]string {
	if len(infra.Environment) == 0 {
		return nil
	}

	resolved := make(map[string]string, len(infra.Environment))
	for k, v := range infra.Environment {
		resolved[k] = rctx.Detokenize(v, infra.OS)
	}

	return resolved
}

// WriteReport serializes the conversion report with deterministic key order.
func (e *Emitter) WriteReport(report *Report) error {
	data, err := sigsyaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("serializing conversion report: %w", err)
	}

	target := filepath.Join(e.outputDir, ReportFileName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("writing conversion report %s: %w", target, err)
	}

	return nil
}

// sharedNetworks declares the run's shared network.
func (e *Emitter) sharedNetworks() map[string]Network {
	return map[string]Network{
		e.network: {Name: e.network},
	}
}

// writeYAML serializes doc to name below the output directory.
func (e *Emitter) writeYAML(name string, doc File) error {
	if err := os.MkdirAll(e.outputDir, 0o750); err != nil {
		return fmt.Errorf("creating output directory %s: %w", e.outputDir, err)
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("serializing compose document %s: %w", name, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("serializing compose document %s: %w", name, err)
	}

	target := filepath.Join(e.outputDir, name)
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing compose file %s: %w", target, err)
	}

	return nil
}
