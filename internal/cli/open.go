package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/verifyshot/internal/app"
	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/types"
)

// openFile hands a path to the OS default handler. Replaced in tests.
var openFile = browser.OpenFile

// NewOpenCmd creates the open command.
func NewOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <config|data|last>",
		Short: "Open the config file, the data directory or the latest screenshot",
		Long: `Open hands a file to the system's default application.

  config  the configuration file (create it with "verifyshot init")
  data    the directory holding the run history
  last    the screenshot written by the most recent run

Examples:
  verifyshot open last
  verifyshot open last --kind page`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "data", "last"},
		RunE:      runOpenCmd,
	}

	cmd.Flags().String("kind", string(types.KindFooter), "Run kind for last: footer or page")

	return cmd
}

// runOpenCmd executes the open command.
func runOpenCmd(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd, targetFooter)
	if err != nil {
		return err
	}

	path, err := openPath(e, cmd, args[0])
	if err != nil {
		return err
	}

	e.logger.Debug("opening", "path", path)
	browser.Stdout = cmd.OutOrStdout()
	browser.Stderr = cmd.ErrOrStderr()
	if err := openFile(path); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

// openPath resolves what to open
func openPath(e *env, cmd *cobra.Command, what string) (string, error) {
	switch what {
	case "config":
		if _, err := os.Stat(e.configPath); errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (run \"verifyshot init\" first)", config.ErrNotFound, e.configPath)
		}
		return e.configPath, nil

	case "data":
		dir := filepath.Dir(e.cfg.HistoryPath())
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
		return dir, nil

	case "last":
		kindFlag, _ := cmd.Flags().GetString("kind")
		kind := types.Kind(kindFlag)
		if kind != types.KindFooter && kind != types.KindPage {
			return "", fmt.Errorf("unknown kind %q (want footer or page)", kindFlag)
		}

		if e.noHistory || !e.cfg.History.Enabled {
			return "", app.ErrNoHistory
		}
		a, closeApp := e.newApp()
		defer closeApp()

		path, err := a.LastOutput(kind)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("screenshot is gone: %w", err)
		}
		return path, nil

	default:
		return "", fmt.Errorf("unknown target %q (want config, data or last)", what)
	}
}
