// Command inspect opens the verification target in a visible browser with
// the same launch options verifyshot uses, so the page, the modal and the
// footer can be checked by hand. With --save-cookies the cookies present
// when you press Enter are written out for the cookies_file setting.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/verifyshot/internal/browser"
	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/logging"
)

func main() {
	cmd := &cobra.Command{
		Use:           "inspect [url]",
		Short:         "Open the target page in a visible browser",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringP("config", "c", "", "Configuration file path")
	cmd.Flags().String("save-cookies", "", "Write the browser's cookies to this file on exit")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cookiesOut, _ := cmd.Flags().GetString("save-cookies")
	verbose, _ := cmd.Flags().GetBool("verbose")

	logger := logging.New(os.Stderr, logging.Options{Verbose: verbose})

	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrNotFound) {
		cfg = config.Default()
	} else if err != nil {
		return err
	}

	url := cfg.Target.URL
	if len(args) == 1 {
		url = args[0]
	}

	// Non-headless so you can see it
	cfg.Browser.Headless = false

	sess, err := browser.Start(context.Background(), cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if path := cfg.Browser.CookiesFile; path != "" {
		cookies, err := browser.LoadCookies(path)
		if err != nil {
			return err
		}
		if err := sess.Run(browser.InjectCookies(cookies)); err != nil {
			return err
		}
	}

	logger.Info("opening", "url", url)
	if err := sess.Run(
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	fmt.Println("Press Enter to close the browser...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	if cookiesOut != "" {
		var cookies []*network.Cookie
		if err := sess.Run(browser.ExtractCookies(&cookies)); err != nil {
			return fmt.Errorf("failed to read cookies: %w", err)
		}
		if err := browser.SaveCookies(cookiesOut, cookies); err != nil {
			return err
		}
		logger.Info("saved cookies", "count", len(cookies), "path", cookiesOut)
	}

	logger.Info("done")
	return nil
}
