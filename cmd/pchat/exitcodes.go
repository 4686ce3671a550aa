package main

import "github.com/matsen/paperchat/internal/assistant"

// Exit codes
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError  = 2 // Configuration error (invalid config file, data directory)
	ExitDataError    = 3 // Data error (paper not found, extraction failed, storage unavailable)
	ExitUnconfigured = 4 // Missing or rejected API key
)

// exitCodeFor maps a failed response code to an exit code.
func exitCodeFor(code string) int {
	switch code {
	case "":
		return ExitSuccess
	case assistant.CodeUnconfigured:
		return ExitUnconfigured
	case assistant.CodeNotFound, assistant.CodeExtraction, assistant.CodeStorage:
		return ExitDataError
	default:
		return ExitError
	}
}
