package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Screenshotter 把渲染好的 HTML 截成 PNG。
type Screenshotter interface {
	Capture(ctx context.Context, html string, width, height int) ([]byte, error)
}

// RodScreenshotter 使用无头 Chromium 截图，每次调用启动独立浏览器。
type RodScreenshotter struct {
	bin    string
	logger *slog.Logger
}

func NewRodScreenshotter(bin string, logger *slog.Logger) *RodScreenshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodScreenshotter{bin: strings.TrimSpace(bin), logger: logger}
}

func (s *RodScreenshotter) Capture(ctx context.Context, html string, width, height int) (_ []byte, err error) {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer launch.Cleanup()

	if s.bin != "" {
		launch = launch.Bin(s.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx).Timeout(60 * time.Second)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if _, err := page.Timeout(15 * time.Second).Element("#render-ready"); err != nil {
		return nil, fmt.Errorf("wait render signal: %w", err)
	}

	// 字体未就绪时文字度量会不同，最多等 3 秒。
	if _, evalErr := page.Timeout(5 * time.Second).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		s.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	el, err := page.Element("#slide-canvas")
	if err != nil {
		return nil, fmt.Errorf("find slide canvas: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot slide canvas: %w", err)
	}
	return data, nil
}
