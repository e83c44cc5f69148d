package cmd

import (
	"errors"
	"fmt"
	"strings"

	"corral/internal/creds"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Whoami-specific flags
var whoamiConfigDir string

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored credential's metadata",
	Long: `Show metadata about the stored credential.

The secret itself is never displayed.`,
	RunE: runWhoami,
}

func init() {
	whoamiCmd.Flags().StringVar(&whoamiConfigDir, "config-dir", "", "Directory holding the stored credential (default ~/.config/corral)")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	store, err := creds.NewFileStore(whoamiConfigDir)
	if err != nil {
		return err
	}

	cred, err := store.Get()
	if err != nil {
		if errors.Is(err, creds.ErrNoCredential) {
			fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("Not authenticated.")+" Run 'corral login' to authenticate.")
			return nil
		}
		return err
	}

	scopes := "unknown"
	if len(cred.Scopes) > 0 {
		scopes = strings.Join(cred.Scopes, "\n")
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendRow(table.Row{"Status", text.FgGreen.Sprint("Authenticated")})
	t.AppendRow(table.Row{"Credential type", string(cred.Type)})
	t.AppendRow(table.Row{"Scopes", scopes})
	t.AppendRow(table.Row{"Created", cred.CreatedAt.Format("2006-01-02 15:04:05 MST")})
	t.AppendRow(table.Row{"Location", store.Path()})
	t.Render()

	return nil
}
