// Package headless mirrors the progress indicator into a real page opened in
// headless Chrome. Element lookups and mutations run as DOM evaluations over
// the DevTools protocol via chromedp.
package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/dom"
)

// Config controls the browser session.
type Config struct {
	// PageURL is the page hosting the indicator markup.
	PageURL string
	// UserAgent optionally overrides the browser user agent.
	UserAgent string
	// NavigationTimeout bounds the initial page load (default 30s).
	NavigationTimeout time.Duration
	// OpTimeout bounds each DOM evaluation (default 5s).
	OpTimeout time.Duration
	// ExecPath optionally points at a Chrome binary.
	ExecPath string
}

// Document is a dom.Document backed by a live browser tab. Mutation failures
// are logged and kept; see Err.
type Document struct {
	cfg         Config
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger

	mu      sync.Mutex
	lastErr error
}

// Open launches headless Chrome and navigates to cfg.PageURL.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Document, error) {
	if cfg.PageURL == "" {
		return nil, errors.New("headless: page url is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	d := &Document{
		cfg:         cfg,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}

	navCtx, cancel := context.WithTimeout(tabCtx, cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, d.navigateActions()...); err != nil {
		d.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.PageURL, err)
	}
	logger.Info("headless page ready", zap.String("url", cfg.PageURL))
	return d, nil
}

func (d *Document) navigateActions() []chromedp.Action {
	var actions []chromedp.Action
	if d.cfg.UserAgent != "" {
		ua := d.cfg.UserAgent
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
			return nil
		}))
	}
	return append(actions,
		chromedp.Navigate(d.cfg.PageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Close shuts the tab and the browser.
func (d *Document) Close() {
	d.tabCancel()
	d.allocCancel()
}

// Err returns the most recent evaluation failure.
func (d *Document) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// ElementByID implements dom.Document. Evaluation failures count as missing.
func (d *Document) ElementByID(id string) (dom.Element, bool) {
	var exists bool
	if err := d.eval(existsScript(id), &exists); err != nil || !exists {
		return nil, false
	}
	return &element{doc: d, id: id}, true
}

func (d *Document) eval(script string, res any) error {
	ctx, cancel := context.WithTimeout(d.tabCtx, d.cfg.OpTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, res)); err != nil {
		err = fmt.Errorf("evaluate: %w", err)
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		d.logger.Warn("headless evaluation failed", zap.Error(err))
		return err
	}
	return nil
}

type element struct {
	doc *Document
	id  string
}

func (e *element) SetStyle(prop, value string) {
	_ = e.doc.eval(setStyleScript(e.id, prop, value), nil)
}

func (e *element) Style(prop string) string {
	var out string
	_ = e.doc.eval(getStyleScript(e.id, prop), &out)
	return out
}

func (e *element) SetText(text string) {
	_ = e.doc.eval(setTextScript(e.id, text), nil)
}

func (e *element) Text() string {
	var out string
	_ = e.doc.eval(getTextScript(e.id), &out)
	return out
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func existsScript(id string) string {
	return fmt.Sprintf(`document.getElementById(%s) !== null`, quote(id))
}

func setStyleScript(id, prop, value string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); if (el) { el.style[%s] = %s; } })()`,
		quote(id), quote(prop), quote(value))
}

func getStyleScript(id, prop string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); return el ? String(el.style[%s] || "") : ""; })()`,
		quote(id), quote(prop))
}

func setTextScript(id, text string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); if (el) { el.innerText = %s; } })()`,
		quote(id), quote(text))
}

func getTextScript(id string) string {
	return fmt.Sprintf(`(() => { const el = document.getElementById(%s); return el ? el.innerText : ""; })()`,
		quote(id))
}
