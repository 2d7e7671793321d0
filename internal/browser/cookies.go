package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// StoredCookies represents a persisted cookie jar. Any page state a target
// keeps in cookies can be pre-seeded this way before navigation.
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
}

// LoadCookies reads a cookie jar written by SaveCookies
func LoadCookies(path string) ([]*network.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file %s: %w", path, err)
	}

	return stored.Cookies, nil
}

// SaveCookies persists cookies to disk
func SaveCookies(path string, cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// InjectCookies returns an action that sets cookies in the browser.
// It must run before navigation for the page to see them.
func InjectCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			if c == nil || c.Name == "" {
				continue
			}

			set := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.SameSite != "" {
				set = set.WithSameSite(c.SameSite)
			}

			if err := set.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

// ExtractCookies returns an action that collects every cookie the browser holds
func ExtractCookies(out *[]*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		*out = cookies
		return nil
	})
}
