package exitcodes

// Exit codes for cmake-clean
// These codes form the operational contract with build scripts and CI
const (
	Success         = 0 // Successful execution
	Usage           = 1 // Bad flags or arguments
	InvalidConfig   = 2 // Configuration file invalid or missing
	SafetyViolation = 3 // Safety validator blocked an operation
	RuntimeError    = 4 // Filesystem or runtime error during execution
)
