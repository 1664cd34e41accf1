package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// dateLayouts are tried in order before falling back to dateparse.
var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan. 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	time.RFC3339Nano,
}

var leadingLabel = regexp.MustCompile(`(?i)^\s*(posted|published|updated)(\s+on)?\s*:?\s*`)

// PostedPattern finds "Posted <Month> <day>, <year>" bylines.
var PostedPattern = regexp.MustCompile(`(?i)Posted\s+([A-Za-z]+\.?\s+\d{1,2},?\s+\d{4})`)

// DatePhrasePattern finds "<Month> <day>, <year>" anywhere in text.
var DatePhrasePattern = regexp.MustCompile(`\b([A-Z][a-z]+\.?\s+\d{1,2},?\s+\d{4})\b`)

// ParseDate parses a date in any of the known formats. The result is UTC.
func ParseDate(s string) (time.Time, bool) {
	s = CollapseSpace(leadingLabel.ReplaceAllString(s, ""))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ScanDate returns the first match of re's first group in text that parses
// as a date.
func ScanDate(text string, re *regexp.Regexp) (time.Time, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		if t, ok := ParseDate(m[1]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimeElement reads the first <time> element, preferring its datetime
// attribute over its text.
func TimeElement(doc *goquery.Document) (time.Time, bool) {
	el := doc.Find("time").First()
	if el.Length() == 0 {
		return time.Time{}, false
	}
	if v, ok := el.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		if t, ok := ParseDate(v); ok {
			return t, true
		}
	}
	return ParseDate(el.Text())
}

// MetaTime reads a date from a <meta property=...> tag such as
// article:published_time.
func MetaTime(doc *goquery.Document, property string) (time.Time, bool) {
	v, ok := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(v)
}

// ArcStory is the part of an Arc Publishing Fusion.globalContent blob the
// adapters use.
type ArcStory struct {
	Headlines struct {
		Basic string `json:"basic"`
	} `json:"headlines"`
	DisplayDate string `json:"display_date"`
	Description struct {
		Basic string `json:"basic"`
	} `json:"description"`
}

var fusionAssign = regexp.MustCompile(`Fusion\.globalContent\s*=\s*`)

// ArcContent decodes the Fusion.globalContent object embedded in an Arc
// page.
func ArcContent(page []byte) (ArcStory, bool) {
	var story ArcStory
	loc := fusionAssign.FindIndex(page)
	if loc == nil {
		return story, false
	}
	if err := json.NewDecoder(bytes.NewReader(page[loc[1]:])).Decode(&story); err != nil {
		return ArcStory{}, false
	}
	return story, true
}
