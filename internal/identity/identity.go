package identity

import (
	"os"
	"strings"
)

const DefaultIdentityFile = "/host_hostname"

// Resolve returns the host identity reported in the source= field.
// It prefers the contents of the identity file, which deployments
// mount to carry the host VM's name into a container, and falls back
// to the local hostname on any read failure. It never fails the run.
func Resolve(path string) string {
	if path == "" {
		path = DefaultIdentityFile
	}
	if data, err := os.ReadFile(path); err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
