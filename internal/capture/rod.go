package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodOptions configures the browser-backed capture source.
type RodOptions struct {
	URL        string
	Width      int
	Height     int
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
}

// RodSource captures frames by screenshotting a headless browser page.
type RodSource struct {
	opts    RodOptions
	browser *rod.Browser
	page    *rod.Page
}

// NewRodSource creates an unacquired browser source.
func NewRodSource(opts RodOptions) *RodSource {
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}
	return &RodSource{opts: opts}
}

// Acquire launches the browser and opens the target page.
func (s *RodSource) Acquire(ctx context.Context) error {
	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(true)
	if s.opts.ProfileDir != "" {
		l = l.UserDataDir(s.opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: launch browser: %v", ErrSourceUnavailable, err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("%w: connect browser: %v", ErrSourceUnavailable, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: s.opts.URL})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("%w: open page: %v", ErrSourceUnavailable, err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.opts.Width,
		Height:            s.opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		_ = browser.Close()
		return fmt.Errorf("%w: set viewport: %v", ErrSourceUnavailable, err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		_ = browser.Close()
		return fmt.Errorf("%w: wait load: %v", ErrSourceUnavailable, err)
	}

	s.browser = browser
	s.page = page
	return nil
}

// Grab screenshots the current page state.
func (s *RodSource) Grab(ctx context.Context) (Frame, error) {
	if s.page == nil {
		return Frame{}, ErrSourceUnavailable
	}

	quality := 90
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatPng,
		Quality: &quality,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("screenshot: %w", err)
	}

	return Frame{PNG: data, CapturedAt: time.Now().UTC()}, nil
}

// Release closes the page and browser. Safe to call repeatedly.
func (s *RodSource) Release() error {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	return nil
}
