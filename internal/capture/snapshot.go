package capture

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/utils"
)

// ParseScripts extracts every <script> element from rendered HTML, in
// document order. External srcs are resolved against baseURL; inline blocks
// keep their trimmed text. Empty inline blocks are dropped.
func ParseScripts(r io.Reader, baseURL string) ([]model.DOMScript, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing DOM snapshot: %w", err)
	}

	var scripts []model.DOMScript
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
			scripts = append(scripts, model.DOMScript{
				Src: utils.ResolveRef(baseURL, src),
			})
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			scripts = append(scripts, model.DOMScript{Text: text})
		}
	})
	return scripts, nil
}
