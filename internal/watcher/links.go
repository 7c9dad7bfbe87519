// File: internal/watcher/links.go
// Description: Form-link extraction from a messaging client's rendered DOM.
package watcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// urlPattern matches bare URLs pasted into chat text. Trailing punctuation is
// stripped afterwards so "https://forms.office.com/r/abc." resolves cleanly.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// ExtractLinks pulls every URL out of an HTML document: anchor hrefs plus
// bare URLs in text nodes. Chat clients render pasted links both ways
// depending on message age and client version. Order is document order with
// duplicates removed; a parse failure falls back to the plain-text scan.
func ExtractLinks(content string) []string {
	seen := make(map[string]struct{})
	var links []string
	add := func(raw string) {
		u := normalizeURL(raw)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		for _, m := range urlPattern.FindAllString(content, -1) {
			add(m)
		}
		return links
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					add(attr.Val)
				}
			}
		}
		if n.Type == html.TextNode {
			for _, m := range urlPattern.FindAllString(n.Data, -1) {
				add(m)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// normalizeURL trims chat-text artifacts from a candidate URL and rejects
// non-HTTP schemes.
func normalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, ".,;:!?)]}’”")
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ""
	}
	return u
}
