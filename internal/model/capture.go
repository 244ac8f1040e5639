package model

// DOMScript is one <script> element in the settled DOM snapshot.
// Exactly one of Src and Text is set.
type DOMScript struct {
	// Src is the resolved absolute URL for external scripts.
	Src string

	// Text is the trimmed source of inline scripts.
	Text string
}

// Inline reports whether the element is an inline script block.
func (d DOMScript) Inline() bool {
	return d.Src == "" && d.Text != ""
}

// Capture is the raw output of one capture session: two independently
// observed views of the page's scripts plus the tag-manager flag. The
// reconciler merges these into the final observation list.
type Capture struct {
	// ScriptRequests are the script URLs seen on the network, in discovery
	// order, already filtered of tag-manager internal endpoints.
	ScriptRequests []string

	// Blocked maps script URLs whose request failed (or came back with an
	// error status) to a short human-readable reason.
	Blocked map[string]string

	// DOMScripts are the <script> elements present at snapshot time, in
	// document order.
	DOMScripts []DOMScript

	// GTMDetected is true when any request or DOM script URL matched the tag
	// manager's own loader pattern.
	GTMDetected bool
}

// BlockReason returns the failure note for url, or "" when the request
// succeeded.
func (c *Capture) BlockReason(url string) string {
	if c.Blocked == nil {
		return ""
	}
	return c.Blocked[url]
}
