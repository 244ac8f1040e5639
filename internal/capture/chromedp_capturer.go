package capture

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
)

// ChromedpCapturer drives a headless Chrome through one capture session per
// scan: navigate with network interception, wait for idle plus the grace
// period, then snapshot the DOM. Every scan gets its own browser context, so
// no state leaks between scans running in the same process.
type ChromedpCapturer struct {
	cfg    Config
	cat    *catalog.Catalog
	logger logging.Logger
}

// NewChromedpCapturer creates the CDP-backed capture session driver.
func NewChromedpCapturer(cfg Config, cat *catalog.Catalog, logger interfaces.Logger) (*ChromedpCapturer, error) {
	if cfg.IdleQuiet <= 0 {
		cfg.IdleQuiet = DefaultConfig().IdleQuiet
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	return &ChromedpCapturer{
		cfg:    cfg,
		cat:    cat,
		logger: logger.With(logging.Field{Key: "component", Value: "capture.chromedp"}),
	}, nil
}

// waitNetworkIdle signals once no requests have been in flight for the quiet
// window. The timer never starts before network activity settles, so the
// channel cannot close while browser launch and navigation are still under
// way. Call settle once navigation has reached the load event: it starts the
// quiet window when nothing is in flight (a page with no subresources would
// otherwise never go idle) and is a no-op while requests are outstanding,
// since their completion arms the timer. The channel is closed at most once.
func waitNetworkIdle(ctx context.Context, quiet time.Duration) (idle <-chan struct{}, settle func()) {
	ch := make(chan struct{})
	var mu sync.Mutex
	var inflight int
	var timer *time.Timer
	var once sync.Once

	// arm (re)starts the quiet-window timer; callers hold mu.
	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, func() {
			mu.Lock()
			n := inflight
			mu.Unlock()
			if n <= 0 {
				once.Do(func() { close(ch) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			mu.Lock()
			inflight++
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			mu.Lock()
			inflight--
			if inflight <= 0 {
				arm()
			}
			mu.Unlock()
		}
	})

	return ch, func() {
		mu.Lock()
		defer mu.Unlock()
		if inflight <= 0 {
			arm()
		}
	}
}

// isScriptRequest matches requests whose resource type is script, or whose
// URL path indicates one.
func isScriptRequest(resType network.ResourceType, url string) bool {
	if resType == network.ResourceTypeScript {
		return true
	}
	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(strings.ToLower(path), ".js")
}

// Capture runs one full session: launch, intercept, navigate, idle-wait,
// grace-wait, snapshot, teardown. Teardown happens on every exit path.
func (c *ChromedpCapturer) Capture(ctx context.Context, target string, opts model.Options) (*model.Capture, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.UserAgent(c.cfg.UserAgent),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	cap := &model.Capture{Blocked: map[string]string{}}
	var mu sync.Mutex
	seen := map[string]bool{}
	reqURLs := map[network.RequestID]string{}

	// Install the listener before navigation begins. Attaching it after
	// navigation starts races the earliest parse-phase requests and silently
	// drops them.
	chromedp.ListenTarget(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if e.Request == nil || !isScriptRequest(e.Type, e.Request.URL) {
				return
			}
			u := e.Request.URL
			if c.cat.IsFiltered(u) {
				return
			}
			mu.Lock()
			reqURLs[e.RequestID] = u
			if !seen[u] {
				seen[u] = true
				cap.ScriptRequests = append(cap.ScriptRequests, u)
			}
			if catalog.IsGTMLoader(u) {
				cap.GTMDetected = true
			}
			mu.Unlock()

		case *network.EventLoadingFailed:
			if e.Type != network.ResourceTypeScript {
				return
			}
			mu.Lock()
			if u, ok := reqURLs[e.RequestID]; ok {
				cap.Blocked[u] = classifyRequestError(e.ErrorText)
			}
			mu.Unlock()

		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeScript || e.Response == nil {
				return
			}
			status := e.Response.Status
			if status == 401 || status == 403 || status == 404 || status == 429 || status >= 500 {
				u := e.Response.URL
				if c.cat.IsFiltered(u) {
					return
				}
				mu.Lock()
				cap.Blocked[u] = classifyRequestError(strconv.FormatInt(status, 10))
				mu.Unlock()
			}
		}
	})

	idle, settle := waitNetworkIdle(browserCtx, c.cfg.IdleQuiet)

	c.logger.Debug("navigating", logging.Field{Key: "target", Value: target})
	if err := chromedp.Run(browserCtx, network.Enable(), chromedp.Navigate(target)); err != nil {
		return nil, classifyNavigationError(err)
	}

	// Navigate returns at the load event; from here idle means the quiet
	// window elapsed with nothing in flight.
	settle()

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, classifyNavigationError(ctx.Err())
	}

	// Extra buffer for tags the idle heuristic alone would miss: async,
	// deferred or event-driven tag firing.
	if grace := opts.GracePeriod(); grace > 0 {
		select {
		case <-time.After(grace):
		case <-ctx.Done():
			return nil, classifyNavigationError(ctx.Err())
		}
	}

	// Redirects move the document base to the final location; resolving
	// relative srcs against the requested target would split a redirected
	// script from its network record.
	var html, finalURL string
	if err := chromedp.Run(browserCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, classifyNavigationError(err)
	}
	if finalURL == "" {
		finalURL = target
	}

	dom, err := ParseScripts(strings.NewReader(html), finalURL)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	cap.DOMScripts = dom
	if !cap.GTMDetected {
		for _, d := range dom {
			if d.Src != "" && catalog.IsGTMLoader(d.Src) {
				cap.GTMDetected = true
				break
			}
		}
	}

	c.logger.Info("capture complete",
		logging.Field{Key: "target", Value: target},
		logging.Field{Key: "network_scripts", Value: len(cap.ScriptRequests)},
		logging.Field{Key: "dom_scripts", Value: len(cap.DOMScripts)},
		logging.Field{Key: "gtm_detected", Value: cap.GTMDetected})

	return cap, nil
}

// Close implements interfaces.Capturer. Browser contexts are per-scan, so
// there is nothing long-lived to release.
func (c *ChromedpCapturer) Close() error {
	c.logger.Info("closing chromedp capturer")
	return nil
}
