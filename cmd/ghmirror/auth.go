package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ghmirror/pkg/auth"
	"ghmirror/pkg/config"
	"ghmirror/pkg/ui"
)

var authHost string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored GitHub tokens",
	Long: `Manage GitHub access tokens stored for ghmirror.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

GHMIRROR_TOKEN and GITHUB_TOKEN are read but never written.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Store a GitHub token",
	Long: `Store a GitHub personal access token.

Create one at https://github.com/settings/tokens. Public repositories need
no scopes; private repositories need the "repo" scope. When no token is
given you are prompted for it and the input is hidden.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which token would be used",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVar(&authHost, "host", "", "API host the token belongs to (default from the configured endpoint)")
}

func newCredentialManager() (*auth.Manager, error) {
	dir, err := auth.ConfigDir()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(dir)
}

// credentialHost returns --host, or the host of the configured endpoint
func credentialHost() string {
	if authHost != "" {
		return authHost
	}
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return auth.DefaultHost
	}
	return auth.HostFromEndpoint(cfg.GitHub.Endpoint)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		fmt.Print("GitHub token: ")
		token, err = readPassword()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}

	host := credentialHost()
	store, err := manager.Store(&auth.Credential{Host: host, Token: token})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token for %s saved to %s", host, store))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	host := credentialHost()
	if err := manager.Delete(host); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			ui.PrintWarning("No stored token for " + host)
			return nil
		}
		return err
	}

	ui.PrintSuccess("Token for " + host + " removed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	host := authHost
	if host == "" {
		host = auth.HostFromEndpoint(cfg.GitHub.Endpoint)
	}
	ui.PrintInfo("Host", host)

	if cfg.GitHub.Token != "" {
		ui.PrintInfo("Token", auth.MaskToken(cfg.GitHub.Token)+" (configuration or environment)")
		return nil
	}

	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	cred, source, err := manager.Retrieve(host)
	if err != nil {
		ui.PrintWarning("Not logged in", "run 'ghmirror auth login'")
		return nil
	}
	ui.PrintInfo("Token", fmt.Sprintf("%s (%s, saved %s)", auth.MaskToken(cred.Token), source, cred.LastModified.Format("2006-01-02")))
	return nil
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
