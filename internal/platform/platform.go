// Package platform identifies the two container OS targets a converted
// project is partitioned across: windows containers on the native engine and
// linux containers on the WSL-hosted engine.
package platform

import "strings"

// OS is a container target operating system.
type OS string

// The two supported targets. Windows is the native host OS; linux containers
// run inside the WSL distribution.
const (
	Linux   OS = "linux"
	Windows OS = "windows"
)

// Parse normalizes an OS string. Anything that is not windows is treated as
// linux, which is also the default for an empty value.
func Parse(s string) OS {
	if strings.EqualFold(strings.TrimSpace(s), string(Windows)) {
		return Windows
	}

	return Linux
}

// IsWindows reports whether o targets the native windows engine.
func (o OS) IsWindows() bool { return o == Windows }

// String returns the lowercase OS name used in file names and reports.
func (o OS) String() string { return string(o) }
