// Package extract holds the page cleaning and field extraction helpers the
// site adapters share.
package extract

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// DefaultContentLimit caps stored article text, in characters.
const DefaultContentLimit = 10000

// NoiseSelectors lists the elements removed before reading article text.
const NoiseSelectors = "script, style, noscript, nav, footer, header, aside"

// containerSelectors are tried in order for the main article body.
var containerSelectors = []string{"article", "main", "div.content"}

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns at most limit characters of s. A non-positive limit
// returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// StripTags converts an HTML fragment, such as a feed entry body, to plain
// text.
func StripTags(fragment string) string {
	return CollapseSpace(html.UnescapeString(stripPolicy.Sanitize(fragment)))
}

// VisibleText returns the text under sel with one space between text
// nodes. Script and style contents are skipped.
func VisibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		switch n.Type {
		case xhtml.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case xhtml.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return CollapseSpace(b.String())
}

// Title returns the page headline: the first h1, else the og:title meta tag.
func Title(doc *goquery.Document) string {
	if t := VisibleText(doc.Find("h1").First()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return CollapseSpace(og)
	}
	return ""
}

// Content returns the article text of doc capped at limit characters.
// Noise elements are removed from doc first, so read every other field
// before calling it.
func Content(doc *goquery.Document, limit int) string {
	doc.Find(NoiseSelectors).Remove()

	sel := doc.Selection
	for _, s := range containerSelectors {
		if found := doc.Find(s).First(); found.Length() > 0 {
			sel = found
			break
		}
	}
	return Truncate(VisibleText(sel), limit)
}
