package cmd

import (
	"errors"
	"os"

	"corral/internal/login"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands. These follow common conventions so scripts can
// distinguish a declined consent from a broken flow.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConsentDenied indicates the user declined consent or the browser prompt.
	ExitCodeConsentDenied = 2
	// ExitCodeAuthFailed indicates the OAuth flow itself failed.
	ExitCodeAuthFailed = 3
)

// rootCmd represents the base command for the corral application.
var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "Manage and deploy workers from your terminal",
	Long: `corral is the command-line tool for the workers platform.

It handles authentication against the platform dashboard and stores the
resulting credential for subsequent API calls.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "corral version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var consentDenied *login.ConsentDeniedError
	if errors.As(err, &consentDenied) {
		return ExitCodeConsentDenied
	}

	var promptDeclined *login.BrowserPromptDeclinedError
	if errors.As(err, &promptDeclined) {
		return ExitCodeConsentDenied
	}

	var csrfMismatch *login.CSRFMismatchError
	if errors.As(err, &csrfMismatch) {
		return ExitCodeAuthFailed
	}

	var exchangeFailed *login.TokenExchangeError
	if errors.As(err, &exchangeFailed) {
		return ExitCodeAuthFailed
	}

	var timedOut *login.CallbackTimeoutError
	if errors.As(err, &timedOut) {
		return ExitCodeAuthFailed
	}

	var malformed *login.MalformedCallbackError
	if errors.As(err, &malformed) {
		return ExitCodeAuthFailed
	}

	var bindFailed *login.ListenerBindError
	if errors.As(err, &bindFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newSelfUpdateCmd())
}
