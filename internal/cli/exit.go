package cli

import "fmt"

// Exit codes returned by the verify commands.
const (
	ExitCodeSafe   = 0
	ExitCodeError  = 1
	ExitCodeUnsafe = 2
)

// ExitError carries a process exit code out of a command. An empty message
// means the command already reported its outcome.
type ExitError struct {
	code    int
	message string
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *ExitError) Code() int {
	if e == nil {
		return ExitCodeError
	}
	return e.code
}

func (e *ExitError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}
