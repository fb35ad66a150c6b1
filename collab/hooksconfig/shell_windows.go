//go:build windows

package hooksconfig

// ShellCommandArgv wraps a free-form shell string for exec on Windows.
func ShellCommandArgv(command string) []string {
	return []string{"cmd", "/C", command}
}
