package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxBodyChars bounds the article text sent to the labeler.
const maxBodyChars = 4000

// HTMLToText flattens an article body to paragraphs of plain text.
// Input without markup is only whitespace-normalised.
func HTMLToText(s string) string {
	if !strings.Contains(s, "<") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("p, li, h1, h2, h3, h4, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if t := collapse(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapse(doc.Text())
	}
	return strings.Join(parts, "\n\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// keep the cut on a rune boundary
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
