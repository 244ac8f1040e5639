// Package reconcile merges the two independently observed views of a page's
// scripts, the network request stream and the settled DOM snapshot, into one
// deduplicated observation list. It is a pure merge keyed by script identity,
// with no I/O and no dependency on how the views were captured.
package reconcile

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/utils"
)

// InlineName is the synthetic display label for inline script blocks.
const InlineName = "inline"

// InlineIdentity derives the stable identity of an inline script from its
// text. Byte-identical blocks merge into one observation.
func InlineIdentity(text string) string {
	sum := sha1.Sum([]byte(text))
	return "inline:" + hex.EncodeToString(sum[:])
}

// Merge reconciles a capture into the final observation list.
//
// A script in both views yields one row with injected=false. A script only on
// the network was fetched but is absent from the settled DOM: it was added
// dynamically, so injected=true (reported as via_gtm only when a tag manager
// was detected). A DOM external with no network record is still included with
// injected=false: network capture should be a superset, but DOM truth wins
// for presence. Inline blocks are part of the document as rendered and are
// never injected.
//
// Ordering: network-discovery order first, then remaining DOM entries in
// document order. Vendor classification is left to the caller.
func Merge(cap *model.Capture) []model.Script {
	domExternal := make(map[string]bool)
	for _, d := range cap.DOMScripts {
		if d.Src != "" {
			domExternal[utils.NormalizeScriptURL(d.Src)] = true
		}
	}

	seen := make(map[string]bool)
	var out []model.Script

	for _, raw := range cap.ScriptRequests {
		u := utils.NormalizeScriptURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, externalObservation(cap, u, !domExternal[u]))
	}

	for _, d := range cap.DOMScripts {
		switch {
		case d.Src != "":
			u := utils.NormalizeScriptURL(d.Src)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, externalObservation(cap, u, false))

		case d.Text != "":
			id := InlineIdentity(d.Text)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, model.Script{
				Identity: id,
				URL:      nil,
				Name:     InlineName,
				Type:     model.ScriptInline,
				Source:   d.Text,
			})
		}
	}

	return out
}

func externalObservation(cap *model.Capture, url string, injected bool) model.Script {
	reason := cap.BlockReason(url)
	u := url
	return model.Script{
		Identity:    url,
		URL:         &u,
		Name:        utils.InferName(url),
		Type:        model.ScriptExternal,
		Injected:    injected,
		ViaGTM:      injected && cap.GTMDetected,
		Blocked:     reason != "",
		BlockReason: reason,
	}
}
