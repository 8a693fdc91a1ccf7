package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/docportal/internal/auth"
	"github.com/fruitsalade/docportal/pkg/client"
)

var (
	mintSecret string
	mintUser   string
	mintName   string
	mintAdmin  bool
	mintTTL    time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check and save a server URL and token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := credentialsPath()
		if err != nil {
			return err
		}
		if err := client.DeleteCredentials(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var mintTokenCmd = &cobra.Command{
	Use:   "mint-token",
	Short: "Issue a bearer token with the server's JWT secret",
	Long: `mint-token signs a token the way the portal server validates it.
It needs the server's JWT_SECRET and is meant for operators and scripts.`,
	RunE: runMintToken,
}

func init() {
	mintTokenCmd.Flags().StringVar(&mintSecret, "secret", os.Getenv("JWT_SECRET"), "JWT secret of the server")
	mintTokenCmd.Flags().StringVar(&mintUser, "user", "", "employee ID the token is issued to")
	mintTokenCmd.Flags().StringVar(&mintName, "name", "", "username claim (default: the employee ID)")
	mintTokenCmd.Flags().BoolVar(&mintAdmin, "admin", false, "grant admin rights")
	mintTokenCmd.Flags().DurationVar(&mintTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if serverURL == "" || authToken == "" {
		return fmt.Errorf("login needs --server and --token")
	}
	c := client.New(client.Config{BaseURL: serverURL, AuthToken: authToken})

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if _, err := c.Health(ctx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	if _, err := c.PinStatus(ctx); err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	creds := &client.Credentials{Server: serverURL, Token: authToken}
	if claims, err := auth.ParseUnverified(authToken); err == nil {
		creds.UserID = claims.UserID
		if claims.ExpiresAt != nil {
			creds.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	path, err := credentialsPath()
	if err != nil {
		return err
	}
	if err := client.SaveCredentials(path, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s", serverURL)
	if creds.UserID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " as %s", creds.UserID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runMintToken(cmd *cobra.Command, args []string) error {
	if mintSecret == "" {
		return fmt.Errorf("--secret or JWT_SECRET is required")
	}
	name := mintName
	if name == "" {
		name = mintUser
	}
	token, exp, err := auth.New(mintSecret).IssueToken(mintUser, name, mintAdmin, mintTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
	return nil
}
