package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/verifyshot/internal/app"
	"github.com/ibeckermayer/verifyshot/internal/types"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `History lists the most recent captures, newest first, with their outcome,
the step that failed and the size of the screenshot.

Examples:
  verifyshot history
  verifyshot history -n 50`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d", limit)
	}

	e, err := newEnv(cmd, targetFooter)
	if err != nil {
		return err
	}

	s, err := e.openStore()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if s == nil {
		return app.ErrNoHistory
	}
	defer s.Close()

	runs, err := s.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	return printRuns(cmd.OutOrStdout(), runs, time.Now())
}

// printRuns writes runs as an aligned table
func printRuns(out io.Writer, runs []types.Run, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded yet.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tMODAL\tTOOK\tSIZE\tOUTPUT")
	for _, r := range runs {
		modal := string(r.Modal)
		if modal == "" {
			modal = "-"
		}
		size := "-"
		if r.Bytes > 0 {
			size = humanize.Bytes(uint64(r.Bytes))
		}
		status := string(r.Status)
		if !r.OK() && r.Step != "" {
			status = fmt.Sprintf("%s (%s)", r.Status, r.Step)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Kind,
			status,
			modal,
			r.Duration().Round(100*time.Millisecond),
			size,
			r.OutputPath,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// Errors are long; print them below the table
	for _, r := range runs {
		if r.Error != "" {
			fmt.Fprintf(out, "\n%s %s: %s\n", r.ID, r.StartedAt.Format(time.DateTime), r.Error)
		}
	}
	return nil
}
