package rules

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// InfraServiceContext is one catalogued infrastructure service, ready for
// token resolution and compose emission.
type InfraServiceContext struct {
	Name        string
	Image       string
	Command     string
	Environment map[string]string
	Ports       []string
	Volumes     []string
	Healthcheck map[string]any
	Build       map[string]any
	ComposeFile string
	OS          platform.OS
}

// SecretEntry is one validated secret definition. Literal entries carry only
// Value; file entries carry the file metadata.
type SecretEntry struct {
	Name             string
	Type             string
	Value            string
	Filename         string
	FromBase64       bool
	KubernetesLayout bool
}

// RuntimeContext owns the infra and secret catalogs for one translation run
// and implements the token-resolution language. It is built once from the
// caller's already-matched rule sets and is read-only afterwards, apart from
// the secret materialization bookkeeping.
type RuntimeContext struct {
	logger *slog.Logger

	// infra is keyed by lowercased name; infraNames preserves catalog order.
	infra      map[string]*InfraServiceContext
	infraNames []string

	// secrets maps lowercased secret name → lowercased entry name → entry.
	secrets map[string]map[string]*SecretEntry

	// secretOrder preserves entry order per secret for file materialization.
	secretOrder map[string][]*SecretEntry
}

// BuildContext constructs a RuntimeContext from matched rule sets. Infra
// entries without an image or build spec and malformed secret definitions are
// dropped with a warning; duplicate infra names from later rule sets
// overwrite earlier ones.
func BuildContext(sets []RuleSet, logger *slog.Logger) *RuntimeContext {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &RuntimeContext{
		logger:      logger,
		infra:       make(map[string]*InfraServiceContext),
		secrets:     make(map[string]map[string]*SecretEntry),
		secretOrder: make(map[string][]*SecretEntry),
	}

	for _, set := range sets {
		for _, def := range set.Infra {
			rc.addInfra(def)
		}

		for secretName, defs := range set.SecretKeyRefs {
			for _, def := range defs {
				rc.addSecret(secretName, def)
			}
		}
	}

	return rc
}

// addInfra validates and catalogs one infra definition.
func (rc *RuntimeContext) addInfra(def InfraDefinition) {
	if def.Name == "" {
		rc.logger.Warn("dropping infra definition without a name")
		return
	}

	if def.Image == "" && len(def.Build) == 0 {
		rc.logger.Warn("dropping infra definition without image or build spec",
			slog.String("infra", def.Name))

		return
	}

	os := platform.Parse(def.OS)

	composeFile := def.ComposeFile
	if composeFile == "" {
		composeFile = fmt.Sprintf("docker-compose.%s.%s.yml", def.Name, os)
	}

	env := make(map[string]string, len(def.Environment))
	for k, v := range def.Environment {
		env[k] = v
	}

	key := strings.ToLower(def.Name)
	if _, exists := rc.infra[key]; !exists {
		rc.infraNames = append(rc.infraNames, key)
	}

	rc.infra[key] = &InfraServiceContext{
		Name:        def.Name,
		Image:       def.Image,
		Command:     def.Command,
		Environment: env,
		Ports:       def.Ports,
		Volumes:     def.Volumes,
		Healthcheck: def.Healthcheck,
		Build:       def.Build,
		ComposeFile: composeFile,
		OS:          os,
	}
}

// addSecret validates one secret definition and catalogs the resulting entry.
func (rc *RuntimeContext) addSecret(secretName string, def SecretDefinition) {
	entry, err := newSecretEntry(def)
	if err != nil {
		rc.logger.Warn("dropping secret definition",
			slog.String("secret", secretName),
			slog.String("entry", def.Name),
			slog.String("reason", err.Error()))

		return
	}

	key := strings.ToLower(secretName)
	if rc.secrets[key] == nil {
		rc.secrets[key] = make(map[string]*SecretEntry)
	}

	entryKey := strings.ToLower(entry.Name)
	if _, exists := rc.secrets[key][entryKey]; !exists {
		rc.secretOrder[key] = append(rc.secretOrder[key], entry)
	}

	rc.secrets[key][entryKey] = entry
}

// newSecretEntry validates a SecretDefinition into a SecretEntry.
func newSecretEntry(def SecretDefinition) (*SecretEntry, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	switch strings.ToLower(def.Type) {
	case SecretTypeLiteral:
		value, ok := optionString(def.Options, "value")
		if !ok {
			return nil, fmt.Errorf("literal secret requires a value option")
		}

		return &SecretEntry{Name: def.Name, Type: SecretTypeLiteral, Value: value}, nil

	case SecretTypeFile:
		filename, ok := optionString(def.Options, "filename")
		if !ok || filename == "" {
			return nil, fmt.Errorf("file secret requires a filename option")
		}

		value, _ := optionString(def.Options, "value")

		return &SecretEntry{
			Name:             def.Name,
			Type:             SecretTypeFile,
			Value:            value,
			Filename:         filename,
			FromBase64:       optionBool(def.Options, "convert_from_base64", true),
			KubernetesLayout: optionBool(def.Options, "kubernetes-layout", true),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported secret type %q", def.Type)
	}
}

// optionString reads a string option from the bag, tolerating non-string
// scalars produced by YAML decoding.
func optionString(options map[string]any, key string) (string, bool) {
	v, ok := options[key]
	if !ok {
		return "", false
	}

	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// optionBool reads a boolean option from the bag with a default.
func optionBool(options map[string]any, key string, def bool) bool {
	v, ok := options[key]
	if !ok {
		return def
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}

		return parsed
	default:
		return def
	}
}

// Infra looks up a catalogued infra service by case-insensitive name.
func (rc *RuntimeContext) Infra(name string) (*InfraServiceContext, bool) {
	infra, ok := rc.infra[strings.ToLower(name)]
	return infra, ok
}

// InfraServices returns all catalogued infra services in catalog order.
func (rc *RuntimeContext) InfraServices() []*InfraServiceContext {
	services := make([]*InfraServiceContext, 0, len(rc.infraNames))
	for _, key := range rc.infraNames {
		services = append(services, rc.infra[key])
	}

	return services
}

// IsInfraCompatible reports whether the named infra runs on the same OS as a
// consuming service. Only same-OS pairs may gain a depends_on edge;
// cross-OS reachability is expressed through host-token rewriting instead.
func (rc *RuntimeContext) IsInfraCompatible(name string, serviceOS platform.OS) bool {
	infra, ok := rc.Infra(name)
	if !ok {
		return false
	}

	return infra.OS == serviceOS
}

// secretEntry looks up a secret entry by case-insensitive secret and key name.
func (rc *RuntimeContext) secretEntry(secretName, key string) (*SecretEntry, bool) {
	entries, ok := rc.secrets[strings.ToLower(secretName)]
	if !ok {
		return nil, false
	}

	entry, ok := entries[strings.ToLower(key)]

	return entry, ok
}

// ResolveSecretValue resolves a literal secret entry for a consuming service.
// It returns the detokenized value plus the infra names referenced inside it,
// so the caller can compute dependency edges. ok is false when the entry does
// not exist or is not a literal.
func (rc *RuntimeContext) ResolveSecretValue(secretName, key string, consumer platform.OS) (value string, infraRefs []string, ok bool) {
	entry, found := rc.secretEntry(secretName, key)
	if !found {
		rc.logger.Warn("unknown secret reference",
			slog.String("secret", secretName), slog.String("key", key))

		return "", nil, false
	}

	if entry.Type != SecretTypeLiteral {
		rc.logger.Warn("secret reference is not a literal",
			slog.String("secret", secretName), slog.String("key", key))

		return "", nil, false
	}

	return rc.Detokenize(entry.Value, consumer), rc.InfraNamesIn(entry.Value), true
}
