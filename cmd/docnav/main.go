// Command docnav browses the document portal from a terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/docportal/internal/logging"
	"github.com/fruitsalade/docportal/pkg/client"
)

var (
	serverURL       string
	authToken       string
	credentialsFile string
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "docnav",
	Short: "Browse employee documents on a portal server",
	Long: `docnav walks the portal's document hierarchy, unlocks documents
with the document PIN and manages PIN and branding settings.

Log in once with 'docnav login --token <jwt>'; later commands reuse the
saved credentials. --server and --token override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return logging.Init(logging.Config{Level: level, Format: "console", OutputPath: "stderr"})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("DOCNAV_SERVER"), "portal base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("DOCNAV_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVar(&credentialsFile, "credentials", "", "credentials file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loginCmd, logoutCmd, mintTokenCmd, treeCmd, browseCmd, pinCmd, settingsCmd)
}

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func credentialsPath() (string, error) {
	if credentialsFile != "" {
		return credentialsFile, nil
	}
	return client.CredentialsPath()
}

// newClient builds a client from flags, falling back to saved credentials.
func newClient() (*client.Client, error) {
	server, token := serverURL, authToken
	if server == "" || token == "" {
		path, err := credentialsPath()
		if err != nil {
			return nil, err
		}
		creds, err := client.LoadCredentials(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("not logged in: run 'docnav login' or pass --server and --token")
			}
			return nil, err
		}
		if creds.Expired(time.Now(), time.Minute) {
			logging.Warn("saved token has expired", zap.Time("expires_at", creds.ExpiresAt))
		}
		if server == "" {
			server = creds.Server
		}
		if token == "" {
			token = creds.Token
		}
	}
	return client.New(client.Config{BaseURL: server, AuthToken: token}), nil
}
