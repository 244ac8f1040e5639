package capture

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/utils"
)

// StaticCapturer fetches the page over plain HTTP and walks the served HTML.
// No JavaScript executes: the DOM snapshot is the document as authored, the
// network view is empty, and dynamically injected scripts are invisible to
// it. Useful where a browser is unavailable or a fast DOM-only survey is
// enough.
type StaticCapturer struct {
	cfg    Config
	cat    *catalog.Catalog
	client *http.Client
	logger logging.Logger
}

// NewStaticCapturer creates the HTTP-backed capturer. httpClient may be nil,
// in which case a default client is used; the per-scan timeout comes from the
// request context either way.
func NewStaticCapturer(cfg Config, cat *catalog.Catalog, logger interfaces.Logger, httpClient *http.Client) (*StaticCapturer, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &StaticCapturer{
		cfg:    cfg,
		cat:    cat,
		client: httpClient,
		logger: logger.With(logging.Field{Key: "component", Value: "capture.static"}),
	}, nil
}

// Capture fetches the target document and snapshots its <script> elements.
func (s *StaticCapturer) Capture(ctx context.Context, target string, opts model.Options) (*model.Capture, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyNavigationError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: target returned HTTP %d", ErrNavigationFailure, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing document: %v", ErrNavigationFailure, err)
	}

	// The client follows redirects; relative srcs resolve against where the
	// document actually came from.
	base := target
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	cap := &model.Capture{Blocked: map[string]string{}}
	s.collectScripts(root, base, cap)

	s.logger.Info("static capture complete",
		logging.Field{Key: "target", Value: target},
		logging.Field{Key: "dom_scripts", Value: len(cap.DOMScripts)},
		logging.Field{Key: "gtm_detected", Value: cap.GTMDetected})

	return cap, nil
}

// collectScripts walks the node tree in document order appending every
// <script> element to the capture.
func (s *StaticCapturer) collectScripts(node *html.Node, baseURL string, cap *model.Capture) {
	if node.Type == html.ElementNode && node.Data == "script" {
		src := ""
		for _, attr := range node.Attr {
			if attr.Key == "src" {
				src = strings.TrimSpace(attr.Val)
				break
			}
		}
		if src != "" {
			resolved := utils.ResolveRef(baseURL, src)
			if !s.cat.IsFiltered(resolved) {
				cap.DOMScripts = append(cap.DOMScripts, model.DOMScript{Src: resolved})
				if catalog.IsGTMLoader(resolved) {
					cap.GTMDetected = true
				}
			}
		} else if node.FirstChild != nil {
			var sb strings.Builder
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				cap.DOMScripts = append(cap.DOMScripts, model.DOMScript{Text: text})
			}
		}
		return
	}

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		s.collectScripts(c, baseURL, cap)
	}
}

// Close implements interfaces.Capturer.
func (s *StaticCapturer) Close() error {
	s.logger.Info("closing static capturer")
	return nil
}
