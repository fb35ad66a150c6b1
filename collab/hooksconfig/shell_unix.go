//go:build !windows

package hooksconfig

// ShellCommandArgv wraps a free-form shell string for exec on Unix-like
// systems.
func ShellCommandArgv(command string) []string {
	return []string{"sh", "-c", command}
}
