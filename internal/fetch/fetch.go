// Package fetch retrieves page content, either as served (colly) or after
// JavaScript execution (chromedp). A failed render degrades to the static
// fetch rather than failing the capture.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	requestTimeout = 30 * time.Second
	renderTimeout  = 40 * time.Second
	renderSettle   = 3 * time.Second
)

// Client fetches pages. One Client owns a single browser allocator shared
// by all renders; Close releases it.
type Client struct {
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// New builds a Client with a headless browser allocator.
func New(logger *zap.Logger) *Client {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Client{logger: logger, allocCtx: allocCtx, allocCancel: cancel}
}

// Page fetches url. With renderJS set it renders the page in a headless
// browser first and falls back to the static fetch if the render fails.
func (c *Client) Page(ctx context.Context, url string, renderJS bool) (string, error) {
	if renderJS {
		html, err := c.render(ctx, url)
		if err == nil {
			return html, nil
		}
		c.logger.Warn("render failed, falling back to static fetch",
			zap.String("url", url), zap.Error(err))
	}
	return c.static(ctx, url)
}

// static performs a plain GET through colly.
func (c *Client) static(ctx context.Context, url string) (string, error) {
	col := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.IgnoreRobotsTxt(),
	)
	col.SetRequestTimeout(requestTimeout)

	var (
		body     []byte
		fetchErr error
	)
	col.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	col.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := col.Visit(url); err != nil && fetchErr == nil {
			fetchErr = err
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
	}

	if fetchErr != nil {
		return "", fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if len(body) == 0 {
		return "", errors.New("fetch returned empty body")
	}
	return string(body), nil
}

// render loads the page in the headless browser, waits for the DOM to be
// ready plus a settle period for late scripts, and serializes the document.
func (c *Client) render(parent context.Context, url string) (string, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(c.allocCtx)
	defer cancelBrowser()

	ctx, cancel := context.WithTimeout(browserCtx, renderTimeout)
	defer cancel()
	if deadline, ok := parent.Deadline(); ok && deadline.Before(time.Now().Add(renderTimeout)) {
		ctx, cancel = context.WithDeadline(browserCtx, deadline)
		defer cancel()
	}

	var html string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			root, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// Close tears down the browser allocator.
func (c *Client) Close() {
	c.allocCancel()
}
