//go:build e2e

// browserclient.go provides browser automation utilities for E2E testing.
// It wraps Rod to provide WebRTC-ready Chrome instances.
package e2e

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// browserConfig configures Chrome launch options.
type browserConfig struct {
	Headless bool          // Run in headless mode (default: true)
	Timeout  time.Duration // Default operation timeout (default: 30s)
}

// defaultBrowserConfig returns sensible defaults for E2E testing.
func defaultBrowserConfig() browserConfig {
	return browserConfig{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// browserClient wraps Rod with WebRTC-ready Chrome configuration.
type browserClient struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// newBrowserClient creates a headless Chrome with WebRTC flags.
func newBrowserClient(cfg browserConfig) (*browserClient, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("use-fake-device-for-media-stream").
		Set("use-fake-ui-for-media-stream").
		Set("autoplay-policy", "no-user-gesture-required")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	return &browserClient{
		browser: browser,
		timeout: cfg.Timeout,
	}, nil
}

// Navigate opens a URL with timeout. Returns the page for further
// interaction.
func (c *browserClient) Navigate(url string) (*rod.Page, error) {
	page := c.browser.MustPage()
	c.page = page

	err := page.Timeout(c.timeout).Navigate(url)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	page.CancelTimeout()
	return page, nil
}

// WaitStable waits for the page to be stable (no DOM changes).
func (c *browserClient) WaitStable() error {
	if c.page == nil {
		return errors.New("no page open")
	}
	return c.page.WaitStable(c.timeout)
}

// Close cleans up browser resources. Always call this (via defer) to
// prevent orphaned Chrome processes.
func (c *browserClient) Close() error {
	if c.browser != nil {
		return c.browser.Close()
	}
	return nil
}
