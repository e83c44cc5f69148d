package cmd

import (
	"fmt"

	"corral/internal/creds"
	"corral/internal/terminal"

	"github.com/spf13/cobra"
)

// Logout-specific flags
var (
	logoutYes       bool
	logoutConfigDir string
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential",
	Long: `Remove the locally stored credential.

After logging out you must run 'corral login' again before using commands
that talk to the platform API.`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutYes, "yes", false, "Skip the confirmation prompt")
	logoutCmd.Flags().StringVar(&logoutConfigDir, "config-dir", "", "Directory holding the stored credential (default ~/.config/corral)")
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := creds.NewFileStore(logoutConfigDir)
	if err != nil {
		return err
	}

	if _, err := store.Get(); err != nil {
		fmt.Println("No credential stored; nothing to do.")
		return nil
	}

	if !logoutYes {
		confirmed, err := terminal.Confirm("Remove the stored credential?")
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := store.Delete(); err != nil {
		return err
	}

	fmt.Println("Logged out.")
	return nil
}
