package cli

import (
	"github.com/spf13/cobra"
)

// NewPageCmd creates the page command.
func NewPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Capture a full-page screenshot once the network is idle",
		Long: `Page navigates to the page URL (default http://localhost:3006), waits until
the network is idle and saves a screenshot of the whole scrollable page.

The location modal is left alone.

Examples:
  verifyshot page
  verifyshot page --url http://localhost:3000 --output full.png`,
		Args: cobra.NoArgs,
		RunE: runPageCmd,
	}

	addTargetFlags(cmd)

	return cmd
}

// runPageCmd executes the full-page capture.
func runPageCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd, targetPage)
	if err != nil {
		return err
	}

	a, closeApp := e.newApp()
	defer closeApp()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	run, err := a.CapturePage(ctx)
	return e.result(run, err)
}
