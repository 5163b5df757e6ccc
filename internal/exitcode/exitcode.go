// Package exitcode defines the process exit codes of firetodo.
package exitcode

const (
	// Success: the command ran and every task change reached the backend.
	Success = 0

	// UserError: bad arguments, unknown command or task number.
	UserError = 1

	// AuthError: missing Google credentials, a revoked token, or a config
	// that cannot be used (including stored data newer than the binary).
	AuthError = 2

	// BackendError: the task store could not be loaded or a save failed.
	BackendError = 3
)

// Name returns a short label for code, used in log lines.
func Name(code int) string {
	switch code {
	case Success:
		return "success"
	case UserError:
		return "user"
	case AuthError:
		return "auth"
	case BackendError:
		return "backend"
	default:
		return "unknown"
	}
}
