// Package cli provides the verifyshot command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Without a subcommand it runs the
// footer verification once.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verifyshot",
		Short: "Capture a screenshot of the store footer after dismissing the location modal",
		Long: `verifyshot opens the store front in a headless browser, dismisses the
location modal if it appears, scrolls to the bottom, waits for the branches
heading and saves a PNG screenshot of the footer.

Failures are logged and the command still exits 0. Use --strict to exit 1
when the capture fails.

Examples:
  # Capture with the defaults (http://localhost:3000)
  verifyshot

  # Capture another deployment into a custom file
  verifyshot --url http://127.0.0.1:8080 --output footer.png

  # Watch the browser do it
  verifyshot --headful`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runVerifyCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: <user config dir>/verifyshot/config.toml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", string(defaultLogFormat),
		"Log output format: tint, text or json")
	cmd.PersistentFlags().Bool("headful", false, "Show the browser window")
	cmd.PersistentFlags().Bool("strict", false, "Exit 1 when the capture fails")
	cmd.PersistentFlags().Bool("no-history", false, "Do not record runs in the history database")

	addTargetFlags(cmd)
	cmd.Flags().Bool("no-modal", false, "Skip location modal handling")

	cmd.AddCommand(NewPageCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewOpenCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// addTargetFlags registers the flags naming what to capture and where to
// write it.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("url", "u", "", "Page to capture (overrides the config file)")
	cmd.Flags().StringP("output", "o", "", "PNG output path (overrides the config file)")
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runVerifyCmd executes the footer verification.
func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd, targetFooter)
	if err != nil {
		return err
	}

	a, closeApp := e.newApp()
	defer closeApp()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	run, err := a.Verify(ctx)
	return e.result(run, err)
}
