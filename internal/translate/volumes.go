package translate

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andrewiankidd/crosspose-sub000/internal/compose"
	"github.com/andrewiankidd/crosspose-sub000/internal/manifest"
	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
	"github.com/andrewiankidd/crosspose-sub000/internal/rules"
)

// ConfigMapsDir is the output subdirectory backing ConfigMap bind mounts.
const ConfigMapsDir = "configmaps"

// resolveVolumes turns the container's volume mounts into host-bind-mount
// specifications. ConfigMap mounts bind a configmaps/<name> directory
// (created when absent); Secret mounts go through the rule runtime context's
// file materialization. Other volume types are skipped.
func (r *run) resolveVolumes(draft *compose.ServiceDraft, container manifest.Node, podVolumes map[string]manifest.Node) error {
	for _, mount := range container.ItemsAt("volumeMounts") {
		volumeName := mount.StringAt("name")
		mountPath := mount.StringAt("mountPath")

		if volumeName == "" || mountPath == "" {
			continue
		}

		volume, ok := podVolumes[volumeName]
		if !ok {
			r.logger.Warn("volume mount references undeclared volume",
				slog.String("service", draft.Name),
				slog.String("volume", volumeName))

			continue
		}

		readOnly := mount.StringAt("readOnly") == "true"
		subPath := mount.StringAt("subPath")

		if cm, found := volume.Get("configMap"); found {
			if err := r.mountConfigMap(draft, cm.StringAt("name"), mountPath, subPath, readOnly); err != nil {
				return err
			}

			continue
		}

		if secret, found := volume.Get("secret"); found {
			if err := r.mountSecret(draft, secret.StringAt("secretName"), mountPath, subPath, readOnly); err != nil {
				return err
			}

			continue
		}

		r.logger.Debug("skipping unsupported volume type",
			slog.String("service", draft.Name),
			slog.String("volume", volumeName))
	}

	return nil
}

// mountConfigMap binds a configmaps/<name> host directory, creating it on
// first use and reusing it afterwards.
func (r *run) mountConfigMap(draft *compose.ServiceDraft, cmName, mountPath, subPath string, readOnly bool) error {
	if cmName == "" {
		return nil
	}

	hostRel := path.Join(ConfigMapsDir, cmName)

	hostDir := filepath.Join(r.opts.OutputDir, filepath.FromSlash(hostRel))
	if err := os.MkdirAll(hostDir, 0o750); err != nil {
		return fmt.Errorf("creating configmap directory %s: %w", hostDir, err)
	}

	if subPath != "" {
		hostRel = path.Join(hostRel, subPath)
	}

	draft.Volumes = append(draft.Volumes, bindMount(draft.OS, hostRel, mountPath, readOnly))

	return nil
}

// mountSecret materializes the secret's files and binds the resulting path.
// Unsafe sub-paths skip the mount; filesystem failures abort the run.
func (r *run) mountSecret(draft *compose.ServiceDraft, secretName, mountPath, subPath string, readOnly bool) error {
	if secretName == "" {
		return nil
	}

	secretMount, err := r.rctx.MaterializeSecret(r.opts.OutputDir, secretName, subPath)
	if err != nil {
		if rules.IsUnsafePath(err) {
			r.logger.Warn("skipping secret mount with unsafe sub-path",
				slog.String("service", draft.Name),
				slog.String("secret", secretName),
				slog.String("subPath", subPath))

			return nil
		}

		return err
	}

	draft.Volumes = append(draft.Volumes, bindMount(draft.OS, secretMount.HostPath(), mountPath, readOnly))

	return nil
}

// bindMount formats a host bind mount string for the target OS. Host paths
// are relative to the compose file; container paths keep their declared form
// on linux, while windows containers get a synthesized drive-letter path for
// POSIX-style declarations.
func bindMount(os platform.OS, hostRel, containerPath string, readOnly bool) string {
	spec := formatHostPath(os, hostRel) + ":" + formatContainerPath(os, containerPath)
	if readOnly {
		spec += ":ro"
	}

	return spec
}

// formatHostPath renders an output-relative path for the target OS.
func formatHostPath(os platform.OS, rel string) string {
	if os.IsWindows() {
		return `.\` + strings.ReplaceAll(rel, "/", `\`)
	}

	return "./" + rel
}

// formatContainerPath adjusts the declared mount path for the target OS.
func formatContainerPath(os platform.OS, mountPath string) string {
	if os.IsWindows() && strings.HasPrefix(mountPath, "/") {
		return "C:" + strings.ReplaceAll(mountPath, "/", `\`)
	}

	return mountPath
}
