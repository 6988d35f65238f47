package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/bestip/config"
	"github.com/use-agent/bestip/models"
)

// RodDriver drives a single page of a launched Chromium via go-rod.
// It is not safe for concurrent use.
type RodDriver struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

var _ Driver = (*RodDriver)(nil)

// Launch starts a browser, opens one page and prepares it: user agent,
// extra headers, stealth evasions and resource blocking are all installed
// before the first navigation.
func Launch(cfg config.BrowserConfig) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.WindowSize != "" {
		l.Set(flags.Flag("window-size"), cfg.WindowSize)
	}
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewStageError(models.StageOpen, models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewStageError(models.StageOpen, models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, models.NewStageError(models.StageOpen, models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	d := &RodDriver{browser: b, page: page}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}
	if len(cfg.ExtraHeaders) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(cfg.ExtraHeaders)}).Call(page); err != nil {
			slog.Warn("extra headers not applied", "error", err)
		}
	}
	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	d.router = setupHijack(page, cfg.BlockedResourceTypes)

	return d, nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	return d.page.Context(ctx).Navigate(url)
}

func (d *RodDriver) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el, nil
}

func (d *RodDriver) Text(ctx context.Context, selector string) (string, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (d *RodDriver) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property(name)
	if err != nil {
		return "", fmt.Errorf("read %s of %q: %w", name, selector, err)
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

func (d *RodDriver) SelectOption(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Select([]string{fmt.Sprintf("[value=%q]", value)}, true, rod.SelectorTypeCSSSector)
}

func (d *RodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *RodDriver) HTML(ctx context.Context) (string, error) {
	return d.page.Context(ctx).HTML()
}

// Close stops the hijack router, closes the page and kills the browser.
// Subsequent calls return the first result.
func (d *RodDriver) Close() error {
	d.closeOnce.Do(func() {
		if d.router != nil {
			_ = d.router.Stop()
		}
		if err := d.page.Close(); err != nil {
			slog.Debug("page close failed", "error", err)
		}
		d.closeErr = d.browser.Close()
		slog.Info("browser closed")
	})
	return d.closeErr
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
