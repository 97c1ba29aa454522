package browserfetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/leofalp/webresearch/providers/fetch"
)

// EnvBrowserBin names the browser binary used when Config.Bin is empty.
const EnvBrowserBin = "RESEARCH_BROWSER_BIN"

const (
	defaultWindowWidth  = 1920
	defaultWindowHeight = 1080
)

// Config describes how to obtain a browser.
type Config struct {
	// Bin is the Chromium binary. Empty lets the launcher find or download one.
	Bin string
	// ControlURL attaches to an already running browser instead of launching.
	ControlURL string
	Headless   bool
	// NoSandbox is required when running as root inside containers.
	NoSandbox    bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// PageTimeout bounds every page operation.
	PageTimeout time.Duration
}

// DefaultConfig returns a headless, sandbox-less configuration with a
// 1920x1080 window and the binary taken from RESEARCH_BROWSER_BIN.
func DefaultConfig() Config {
	return Config{
		Bin:          os.Getenv(EnvBrowserBin),
		Headless:     true,
		NoSandbox:    true,
		WindowWidth:  defaultWindowWidth,
		WindowHeight: defaultWindowHeight,
		UserAgent:    fetch.DefaultUserAgent,
		PageTimeout:  fetch.DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.WindowWidth <= 0 {
		c.WindowWidth = defaultWindowWidth
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = defaultWindowHeight
	}
	if c.UserAgent == "" {
		c.UserAgent = fetch.DefaultUserAgent
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = fetch.DefaultTimeout
	}
	return c
}

type launchFlag struct {
	name   flags.Flag
	values []string
}

// launchFlags hides the automation marker and keeps Chromium usable in
// small containers.
func (c Config) launchFlags() []launchFlag {
	return []launchFlag{
		{name: "disable-blink-features", values: []string{"AutomationControlled"}},
		{name: "disable-dev-shm-usage"},
		{name: "disable-gpu"},
		{name: "window-size", values: []string{strconv.Itoa(c.WindowWidth) + "," + strconv.Itoa(c.WindowHeight)}},
	}
}

func (c Config) launcher() *launcher.Launcher {
	l := launcher.New().Headless(c.Headless).NoSandbox(c.NoSandbox)
	if c.Bin != "" {
		l = l.Bin(c.Bin)
	}
	for _, f := range c.launchFlags() {
		l = l.Set(f.name, f.values...)
	}
	return l
}

// Browser is a connected browser. It must be closed by its owner.
type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
	config   Config

	// pages serialises page use.
	pages sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a browser according to cfg, or attaches to cfg.ControlURL
// when set. ctx bounds the connection handshake only; the browser lives until
// Close.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()
	if cfg.ControlURL != "" {
		return connect(ctx, cfg, nil)
	}

	l := cfg.launcher()
	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	cfg.ControlURL = controlURL

	b, err := connect(ctx, cfg, l)
	if err != nil {
		l.Kill()
		l.Cleanup()
		return nil, err
	}
	return b, nil
}

// Connect attaches to a running browser at controlURL.
func Connect(ctx context.Context, controlURL string, cfg Config) (*Browser, error) {
	cfg.ControlURL = controlURL
	return connect(ctx, cfg.withDefaults(), nil)
}

func connect(ctx context.Context, cfg Config, l *launcher.Launcher) (*Browser, error) {
	rb := rod.New().ControlURL(cfg.ControlURL).Context(ctx)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return &Browser{
		rod:      rb.Context(context.Background()),
		launcher: l,
		config:   cfg,
	}, nil
}

// Config returns the effective configuration.
func (b *Browser) Config() Config {
	return b.config
}

// Close shuts the browser down and removes the launcher's profile directory.
// It is safe to call more than once and on a nil Browser.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		if b.rod != nil {
			b.closeErr = b.rod.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
			b.launcher.Cleanup()
		}
	})
	return b.closeErr
}

var errNoBrowser = errors.New("browser is nil")
