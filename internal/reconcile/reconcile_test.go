package reconcile_test

import (
	"testing"

	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/reconcile"
)

func findByURL(t *testing.T, scripts []model.Script, url string) model.Script {
	t.Helper()
	for _, s := range scripts {
		if s.URL != nil && *s.URL == url {
			return s
		}
	}
	t.Fatalf("no script with URL %s", url)
	return model.Script{}
}

func TestMerge_BothViewsYieldOneRow(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{"https://example.com/app.js"},
		DOMScripts:     []model.DOMScript{{Src: "https://example.com/app.js"}},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	s := scripts[0]
	if s.Injected {
		t.Error("script present in DOM must not be injected")
	}
	if s.ViaGTM {
		t.Error("via_gtm must be false for a DOM-present script")
	}
	if s.Name != "app.js" {
		t.Errorf("expected name app.js, got %q", s.Name)
	}
}

func TestMerge_NetworkOnlyIsInjected(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{"https://static.hotjar.com/c/hotjar-123.js"},
		GTMDetected:    true,
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if !scripts[0].Injected {
		t.Error("network-only script must be injected")
	}
	if !scripts[0].ViaGTM {
		t.Error("injected script with GTM detected must be via_gtm")
	}
}

func TestMerge_ViaGTMRequiresDetection(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{"https://cdn.example.com/late.js"},
		GTMDetected:    false,
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if !scripts[0].Injected {
		t.Error("network-only script must be injected")
	}
	if scripts[0].ViaGTM {
		t.Error("via_gtm must be false when no tag manager was detected")
	}
}

func TestMerge_DOMOnlyExternalIncluded(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		DOMScripts: []model.DOMScript{{Src: "https://example.com/static-only.js"}},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if scripts[0].Injected {
		t.Error("DOM-only external must not be injected")
	}
	if scripts[0].Type != model.ScriptExternal {
		t.Errorf("expected external type, got %q", scripts[0].Type)
	}
}

func TestMerge_InlineNeverInjected(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		DOMScripts:  []model.DOMScript{{Text: "fbq('init', '123');"}},
		GTMDetected: true,
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	s := scripts[0]
	if s.URL != nil {
		t.Error("inline script must have nil URL")
	}
	if s.Name != reconcile.InlineName {
		t.Errorf("expected name %q, got %q", reconcile.InlineName, s.Name)
	}
	if s.Injected || s.ViaGTM {
		t.Error("inline scripts are part of the rendered document, never injected")
	}
	if s.Source != "fbq('init', '123');" {
		t.Error("inline source text must be retained for classification")
	}
}

func TestMerge_IdentityUniqueness(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{
			"https://example.com/a.js",
			"https://example.com/a.js", // network duplicate
			"https://example.com/b.js",
		},
		DOMScripts: []model.DOMScript{
			{Src: "https://example.com/a.js"}, // also in DOM
			{Text: "console.log('x');"},
			{Text: "console.log('x');"}, // byte-identical inline duplicate
		},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 3 {
		t.Fatalf("expected 3 scripts (a, b, one inline), got %d", len(scripts))
	}
	seen := make(map[string]bool)
	for _, s := range scripts {
		if seen[s.Identity] {
			t.Errorf("duplicate identity %q", s.Identity)
		}
		seen[s.Identity] = true
	}
}

func TestMerge_QueryStringsAreDistinctIdentities(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{
			"https://www.googletagmanager.com/gtag/js?id=G-AAA",
			"https://www.googletagmanager.com/gtag/js?id=G-BBB",
		},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(scripts))
	}
}

func TestMerge_Ordering(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{
			"https://example.com/first.js",
			"https://example.com/second.js",
		},
		DOMScripts: []model.DOMScript{
			{Src: "https://example.com/second.js"},
			{Src: "https://example.com/dom-only.js"},
			{Text: "var x = 1;"},
		},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 4 {
		t.Fatalf("expected 4 scripts, got %d", len(scripts))
	}

	// Network-discovery order first, then remaining DOM entries in
	// document order.
	wantIdentity := []string{
		"https://example.com/first.js",
		"https://example.com/second.js",
		"https://example.com/dom-only.js",
		reconcile.InlineIdentity("var x = 1;"),
	}
	for i, want := range wantIdentity {
		if scripts[i].Identity != want {
			t.Errorf("position %d: got %q, want %q", i, scripts[i].Identity, want)
		}
	}
}

func TestMerge_DeterministicForSameCapture(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{"https://example.com/a.js", "https://example.com/b.js"},
		DOMScripts: []model.DOMScript{
			{Src: "https://example.com/b.js"},
			{Text: "gtag('config', 'G-1');"},
		},
		GTMDetected: true,
	}
	first := reconcile.Merge(cap)
	for i := 0; i < 5; i++ {
		again := reconcile.Merge(cap)
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed", i)
		}
		for j := range first {
			if again[j].Identity != first[j].Identity || again[j].ViaGTM != first[j].ViaGTM {
				t.Fatalf("run %d: script %d differs", i, j)
			}
		}
	}
}

func TestMerge_BlockedPropagates(t *testing.T) {
	t.Parallel()
	cap := &model.Capture{
		ScriptRequests: []string{"https://ads.example.com/pixel.js"},
		Blocked: map[string]string{
			"https://ads.example.com/pixel.js": "Blocked (adblocker/client)",
		},
	}
	scripts := reconcile.Merge(cap)
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}
	if !scripts[0].Blocked {
		t.Error("expected blocked flag")
	}
	if scripts[0].BlockReason != "Blocked (adblocker/client)" {
		t.Errorf("unexpected block reason %q", scripts[0].BlockReason)
	}
}

func TestMerge_EmptyCaptureYieldsNoScripts(t *testing.T) {
	t.Parallel()
	scripts := reconcile.Merge(&model.Capture{})
	if len(scripts) != 0 {
		t.Fatalf("expected no scripts, got %d", len(scripts))
	}
}

func TestInlineIdentity_StableAndDistinct(t *testing.T) {
	t.Parallel()
	a := reconcile.InlineIdentity("var a = 1;")
	if a != reconcile.InlineIdentity("var a = 1;") {
		t.Error("identity must be stable for identical text")
	}
	if a == reconcile.InlineIdentity("var a = 2;") {
		t.Error("different text must yield different identities")
	}
}
