package errors

import (
	"errors"
	"fmt"
)

// Common error types. Messages are user facing; the command bus returns them verbatim.
var (
	// Environment errors.
	ErrNoHomeDir    = fmt.Errorf("could not determine home directory")
	ErrNoAppData    = fmt.Errorf("APPDATA not set")
	ErrUnsupported  = fmt.Errorf("Unsupported")
	ErrInstallBusy  = fmt.Errorf("another installation is already running")
	ErrNotSupported = fmt.Errorf("not supported on this platform")

	ErrBundledUnsupported = fmt.Errorf("Bundled mode not supported on this platform")

	// Catalog and download errors.
	ErrUnknownDependency = fmt.Errorf("Unknown dependency")
	ErrCatalogEntry      = fmt.Errorf("catalog entry missing")
	ErrDownloadFailed    = fmt.Errorf("Download failed")
	ErrChecksumMismatch  = fmt.Errorf("Checksum mismatch")

	// Installer validation errors.
	ErrInvalidInstallerPath   = fmt.Errorf("Invalid installer path: must be in temp directory")
	ErrInvalidInstallerType   = fmt.Errorf("Invalid installer file type")
	ErrInvalidDockerInstaller = fmt.Errorf("Invalid Docker installer path")
	ErrInstallerFailed        = fmt.Errorf("Installation failed")

	// Pipeline errors.
	ErrUnknownInstallMode = fmt.Errorf("Unknown install mode")
	ErrStepFailed         = fmt.Errorf("install step failed")
	ErrStepTransition     = fmt.Errorf("invalid step transition")
	ErrGatewayUnreachable = fmt.Errorf("Gateway verification failed")
	ErrShortcutTarget     = fmt.Errorf("Invalid shortcut target")
	ErrUnsafeArchivePath  = fmt.Errorf("unsafe path in archive")
	ErrNoTarball          = fmt.Errorf("No OpenClaw tarball found in bundle")
	ErrExtractFailed      = fmt.Errorf("Extraction failed")

	// Gateway, diagnostics and service errors.
	ErrGatewayCommand       = fmt.Errorf("gateway command failed")
	ErrNoFixAvailable       = fmt.Errorf("No automatic fix available for issue")
	ErrPortConflictFix      = fmt.Errorf("Could not automatically fix port conflict")
	ErrServiceRegistered    = fmt.Errorf("Service is already registered")
	ErrServiceNotRegistered = fmt.Errorf("Service is not registered")
	ErrSupervisorNotFound   = fmt.Errorf("NSSM not found. Please reinstall OpenClaw Installer.")
	ErrServiceCommand       = fmt.Errorf("service command failed")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("Failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename config file")
	ErrConfigFileChmod   = fmt.Errorf("failed to set config file permissions")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")

	// Command bus errors.
	ErrUnknownCommand   = fmt.Errorf("unknown command")
	ErrInvalidArguments = fmt.Errorf("invalid command arguments")
	ErrInvalidParameter = fmt.Errorf("invalid model parameter")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
	ErrHookExists    = fmt.Errorf("hook script already exists")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Detail attaches a detail string after a sentinel, e.g. "Invalid installer file type: zip".
func Detail(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return errors.As(err, target) }
