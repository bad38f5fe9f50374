package rules

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath marks a secret path that would traverse above the secret's
// own directory.
var ErrUnsafePath = errors.New("path escapes secret directory")

// IsUnsafePath reports whether err stems from a rejected traversal attempt.
func IsUnsafePath(err error) bool { return errors.Is(err, ErrUnsafePath) }

// SecretsDir is the output subdirectory holding materialized secret files.
const SecretsDir = "secrets"

// kubernetesDataDir mirrors the atomic-update subdirectory kubelet uses for
// projected secret volumes.
const kubernetesDataDir = "..data"

// SecretMount describes where a materialized secret lives on the host,
// relative to the output directory.
type SecretMount struct {
	// Dir is the secret's root directory (secrets/<name>).
	Dir string

	// SubPath, when non-empty, narrows the mount to one file below Dir.
	SubPath string
}

// HostPath returns the mount source relative to the output directory.
func (m SecretMount) HostPath() string {
	if m.SubPath == "" {
		return m.Dir
	}

	return path.Join(m.Dir, m.SubPath)
}

// MaterializeSecret writes all file entries of the named secret below
// outputDir and returns the resulting mount. Writes are idempotent by path: a
// file that already exists on disk is never rewritten within or across runs.
// Filesystem failures are fatal; undecodable payloads and traversal attempts
// only skip the offending entry.
func (rc *RuntimeContext) MaterializeSecret(outputDir, secretName, subPath string) (SecretMount, error) {
	mount := SecretMount{
		Dir:     path.Join(SecretsDir, secretName),
		SubPath: subPath,
	}

	if subPath != "" && !pathWithin(mount.Dir, path.Join(mount.Dir, subPath)) {
		return SecretMount{}, fmt.Errorf("secret %q: subPath %q: %w", secretName, subPath, ErrUnsafePath)
	}

	entries := rc.secretOrder[strings.ToLower(secretName)]
	if len(entries) == 0 {
		rc.logger.Warn("no secret definitions for volume", slog.String("secret", secretName))
		return mount, nil
	}

	secretRoot := filepath.Join(outputDir, filepath.FromSlash(mount.Dir))

	for _, entry := range entries {
		if entry.Type != SecretTypeFile {
			continue
		}

		if err := rc.materializeEntry(secretRoot, secretName, entry); err != nil {
			return SecretMount{}, err
		}
	}

	return mount, nil
}

// materializeEntry writes one file entry, honoring the base64 flag and the
// kubernetes layout.
func (rc *RuntimeContext) materializeEntry(secretRoot, secretName string, entry *SecretEntry) error {
	payload, ok := rc.decodePayload(secretName, entry)
	if !ok {
		return nil
	}

	flatPath, err := securePath(secretRoot, entry.Filename)
	if err != nil {
		rc.logger.Warn("skipping secret file with unsafe path",
			slog.String("secret", secretName),
			slog.String("filename", entry.Filename),
			slog.String("reason", err.Error()))

		return nil
	}

	if !entry.KubernetesLayout {
		return rc.writeSecretFile(flatPath, payload)
	}

	// Kubernetes layout: the data lives under ..data, with a second copy
	// published at the flat path (skipped when the two coincide).
	dataPath, err := securePath(secretRoot, path.Join(kubernetesDataDir, entry.Filename))
	if err != nil {
		rc.logger.Warn("skipping secret file with unsafe path",
			slog.String("secret", secretName),
			slog.String("filename", entry.Filename),
			slog.String("reason", err.Error()))

		return nil
	}

	if err := rc.writeSecretFile(dataPath, payload); err != nil {
		return err
	}

	if dataPath == flatPath {
		return nil
	}

	return rc.writeSecretFile(flatPath, payload)
}

// decodePayload produces the raw bytes for a file entry. Invalid base64
// payloads are skipped with a warning.
func (rc *RuntimeContext) decodePayload(secretName string, entry *SecretEntry) ([]byte, bool) {
	if !entry.FromBase64 {
		return []byte(entry.Value), true
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(entry.Value))
	if err != nil {
		rc.logger.Warn("skipping secret file with invalid base64 payload",
			slog.String("secret", secretName),
			slog.String("filename", entry.Filename),
			slog.String("error", err.Error()))

		return nil, false
	}

	return decoded, true
}

// writeSecretFile writes payload to target unless the file already exists.
func (rc *RuntimeContext) writeSecretFile(target string, payload []byte) error {
	if _, err := os.Stat(target); err == nil {
		rc.logger.Debug("secret file already materialized", slog.String("path", target))
		return nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating secret directory %s: %w", dir, err)
	}

	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("writing secret file %s: %w", target, err)
	}

	return nil
}

// securePath joins name below root, rejecting any relative segment that would
// traverse above root.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))

	if !pathWithin(filepath.ToSlash(root), filepath.ToSlash(target)) {
		return "", fmt.Errorf("path %q below %q: %w", name, root, ErrUnsafePath)
	}

	return target, nil
}

// pathWithin reports whether target stays at or below root after cleaning.
// Both arguments use forward slashes.
func pathWithin(root, target string) bool {
	root = path.Clean(root)
	target = path.Clean(target)

	return target == root || strings.HasPrefix(target, root+"/")
}
