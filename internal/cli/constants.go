package cli

// Default values for CLI flags and arguments.
const (
	// DefaultInstallMode is the pipeline run when --mode is not given.
	DefaultInstallMode = "npm"
	// StdinArg reads a JSON document from standard input.
	StdinArg = "-"
	// Number of arguments expected by the set commands.
	setCommandArgs = 2
)
