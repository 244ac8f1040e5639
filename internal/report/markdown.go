package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/tagscope/tagscope/internal/model"
)

// WriteMarkdown renders one scan result as a Markdown document: scan
// metadata, vendor breakdown, then the full script inventory.
func WriteMarkdown(w io.Writer, res *model.ScanResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Script Audit Report")
	md.PlainText("")

	status := "Complete"
	if res.Failed() {
		status = "Error: " + res.Error
	}
	gtm := "No"
	if res.GTMDetected {
		gtm = "Yes"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + res.URL + "`"},
			{"Scanned At", res.ScannedAt.Format("2006-01-02 15:04:05 MST")},
			{"Scripts Found", strconv.Itoa(len(res.Scripts))},
			{"GTM Detected", gtm},
			{"Status", status},
		},
	})
	md.PlainText("")

	if res.Failed() {
		return md.Build()
	}

	if breakdown := VendorBreakdown(res); len(breakdown) > 0 {
		md.H2("Vendor Breakdown")
		md.PlainText("")
		rows := make([][]string, 0, len(breakdown))
		for _, vc := range breakdown {
			rows = append(rows, []string{vc.Vendor, strconv.Itoa(vc.Count)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Vendor", "Scripts"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(res.Scripts) > 0 {
		md.H2("Detected Scripts")
		md.PlainText("")
		rows := make([][]string, 0, len(res.Scripts))
		for _, s := range res.Scripts {
			gtmFlag := ""
			if s.ViaGTM {
				gtmFlag = "via GTM"
			}
			blocked := ""
			if s.Blocked {
				blocked = s.BlockReason
			}
			rows = append(rows, []string{
				"`" + displayURL(s) + "`",
				s.Name,
				s.Vendor,
				string(s.Type),
				gtmFlag,
				blocked,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Name", "Vendor", "Type", "Injection", "Blocked"},
			Rows:   rows,
		})
	}

	return md.Build()
}
