package cmd

import (
	"fmt"
	"strings"

	"corral/internal/config"
	"corral/internal/creds"
	"corral/internal/login"

	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginScopes    []string
	loginConfigDir string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate corral with your account",
	Long: `Authenticate corral with your account using OAuth.

This command opens a browser page where you grant corral access to your
account. The resulting credential is stored locally and used by all other
commands.

By default every supported scope is requested. Use --scope to request a
subset:

  corral login                                  # Request all scopes
  corral login --scope account:read             # Request one scope
  corral login --scope zone:read,workers:write  # Request several scopes

Supported scopes:
  ` + strings.Join(login.AllowedScopes, "\n  "),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringSliceVar(&loginScopes, "scope", nil, "OAuth scope to request (repeatable); defaults to all supported scopes")
	loginCmd.Flags().StringVar(&loginConfigDir, "config-dir", "", "Directory holding config.yaml and the stored credential (default ~/.config/corral)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(loginConfigDir)
	if err != nil {
		return err
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("no OAuth client id configured: set client_id in config.yaml or CORRAL_CLIENT_ID")
	}

	store, err := creds.NewFileStore(loginConfigDir)
	if err != nil {
		return err
	}

	flow := login.NewFlow(login.Config{
		ClientID:           cfg.ClientID,
		AuthURL:            cfg.AuthURL,
		TokenURL:           cfg.TokenURL,
		CallbackPort:       cfg.CallbackPort,
		CallbackTimeout:    cfg.CallbackTimeout,
		GrantedRedirectURL: cfg.GrantedRedirectURL,
		DeniedRedirectURL:  cfg.DeniedRedirectURL,
	}, store, login.WithSpinner())

	if err := flow.Run(cmd.Context(), loginScopes); err != nil {
		return err
	}

	fmt.Println("Successfully logged in.")
	return nil
}
