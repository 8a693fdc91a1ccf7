package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/docportal/internal/settings"
)

var currentPin string

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage your document PIN",
}

var pinStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a PIN is set and whether it is locked",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.PinStatus(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !st.PinSet {
			fmt.Fprintln(out, "No document PIN set.")
			return nil
		}
		fmt.Fprintf(out, "PIN set, %d failed attempts\n", st.FailedAttempts)
		if st.IsLocked && st.LockedUntil != nil {
			fmt.Fprintf(out, "Locked until %s\n", st.LockedUntil.Local().Format(time.Kitchen))
		}
		return nil
	},
}

var pinSetCmd = &cobra.Command{
	Use:   "set <pin>",
	Short: "Set or change your 4-digit document PIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		msg, err := c.SetPin(cmd.Context(), args[0], currentPin)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var pinResetCmd = &cobra.Command{
	Use:   "reset <user-id>...",
	Short: "Clear employees' PINs (admin)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.ResetPins(cmd.Context(), args...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %d PIN(s).\n", len(args))
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings [key] [value]",
	Short: "List, read or (admins) change portal settings",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		switch len(args) {
		case 0:
			all, err := c.Settings(ctx)
			if err != nil {
				return err
			}
			for _, k := range settings.Keys(all) {
				fmt.Fprintf(out, "%s=%s\n", k, all[k])
			}
		case 1:
			v, err := c.Setting(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
		default:
			if err := c.PutSetting(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s updated\n", args[0])
		}
		return nil
	},
}

func init() {
	pinSetCmd.Flags().StringVar(&currentPin, "current", "", "current PIN, required to change an existing one")
	pinCmd.AddCommand(pinStatusCmd, pinSetCmd, pinResetCmd)
}
