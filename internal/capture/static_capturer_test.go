package capture_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tagscope/tagscope/internal/capture"
	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/model"
)

func newStatic(t *testing.T) *capture.StaticCapturer {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	c, err := capture.NewStaticCapturer(capture.DefaultConfig(), cat, interfaces.NewTestLogger(false), nil)
	if err != nil {
		t.Fatalf("NewStaticCapturer: %v", err)
	}
	return c
}

func TestStaticCapturer_CollectsScripts(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
			<script src="https://www.googletagmanager.com/gtm.js?id=GTM-ABC"></script>
			<script src="/static/app.js"></script>
			<script>gtag('config', 'G-1');</script>
		</head><body></body></html>`))
	}))
	defer srv.Close()

	c := newStatic(t)
	cap, err := c.Capture(context.Background(), srv.URL, model.DefaultOptions())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if len(cap.DOMScripts) != 3 {
		t.Fatalf("expected 3 DOM scripts, got %d", len(cap.DOMScripts))
	}
	if !cap.GTMDetected {
		t.Error("expected GTM detection from container loader src")
	}
	if cap.DOMScripts[1].Src != srv.URL+"/static/app.js" {
		t.Errorf("relative src not resolved: %q", cap.DOMScripts[1].Src)
	}
	if len(cap.ScriptRequests) != 0 {
		t.Error("static backend must not report network requests")
	}
}

func TestStaticCapturer_FiltersTagManagerPlumbing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<script src="https://www.googletagmanager.com/gtm/preview?id=GTM-ABC"></script>
			<script src="https://example.com/keep.js"></script>
		</body></html>`))
	}))
	defer srv.Close()

	c := newStatic(t)
	cap, err := c.Capture(context.Background(), srv.URL, model.DefaultOptions())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(cap.DOMScripts) != 1 {
		t.Fatalf("expected 1 DOM script after filtering, got %d", len(cap.DOMScripts))
	}
	if cap.DOMScripts[0].Src != "https://example.com/keep.js" {
		t.Errorf("wrong survivor: %q", cap.DOMScripts[0].Src)
	}
}

func TestStaticCapturer_ResolvesAgainstFinalURLAfterRedirect(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/sub/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script src="app.js"></script></body></html>`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sub/page", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newStatic(t)
	cap, err := c.Capture(context.Background(), srv.URL+"/", model.DefaultOptions())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(cap.DOMScripts) != 1 {
		t.Fatalf("expected 1 DOM script, got %d", len(cap.DOMScripts))
	}
	if want := srv.URL + "/sub/app.js"; cap.DOMScripts[0].Src != want {
		t.Errorf("relative src must resolve against the redirect target: got %q, want %q",
			cap.DOMScripts[0].Src, want)
	}
}

func TestStaticCapturer_HTTPErrorIsNavigationFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newStatic(t)
	_, err := c.Capture(context.Background(), srv.URL, model.DefaultOptions())
	if !errors.Is(err, capture.ErrNavigationFailure) {
		t.Fatalf("expected ErrNavigationFailure, got %v", err)
	}
}

func TestStaticCapturer_UnreachableHost(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	c := newStatic(t)
	_, err := c.Capture(context.Background(), url, model.DefaultOptions())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !errors.Is(err, capture.ErrNavigationFailure) && !errors.Is(err, capture.ErrNavigationTimeout) {
		t.Fatalf("expected a navigation error kind, got %v", err)
	}
}

func TestStaticCapturer_SendsUserAgent(t *testing.T) {
	t.Parallel()
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := newStatic(t)
	if _, err := c.Capture(context.Background(), srv.URL, model.DefaultOptions()); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if gotUA != capture.DefaultConfig().UserAgent {
		t.Errorf("unexpected User-Agent %q", gotUA)
	}
}
