package transform

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"textbridge/internal/core/page"
)

// The provenance marker is the only channel for recovering page identity
// after the translation round trip: free-form text may be altered or
// reordered by the translator, attributes are not.
const (
	markerClass  = "origin-meta"
	summaryClass = "origin-summary"
	attrLib      = "data-lib"
	attrPageID   = "data-pageid"
)

var (
	// Letters, dots and parentheses only; anything else inside double
	// braces is left for the translator.
	templateRe = regexp.MustCompile(`<div class="notranslate">\{\{[A-Za-z.()]+\}\}</div>|\{\{[A-Za-z.()]+\}\}`)

	// Non-greedy, and the character before the closing delimiter must not
	// be a backslash so escaped delimiters stay inside the span.
	inlineMathRe  = regexp.MustCompile(`(?s)\\\(.*?[^\\]\\\)`)
	displayMathRe = regexp.MustCompile(`(?s)\\\[.*?[^\\]\\\]`)
)

// Apply rewrites page HTML for submission: provenance block first, then
// the three independent notranslate rewrites.
func Apply(contents string, n *page.Node) string {
	out := Provenance(n.Lib, n.ID, n.Title, n.Summary) + contents
	out = WrapTemplates(out)
	out = WrapInlineMath(out)
	out = WrapDisplayMath(out)
	return out
}

// Provenance builds the marker block: an always-present element carrying
// lib and id as attributes and the title as text, plus an optional
// summary element. Neither element is shielded: their text is how the
// translated title and summary come back.
func Provenance(lib, id, title, summary string) string {
	block := fmt.Sprintf(`<p class="%s" %s=%q %s=%q>%s</p>`,
		markerClass, attrLib, lib, attrPageID, id, html.EscapeString(title))
	if summary != "" {
		block += fmt.Sprintf(`<p class="%s">%s</p>`, summaryClass, html.EscapeString(summary))
	}
	return block
}

// WrapTemplates shields double-brace template tokens from translation.
// Already-wrapped tokens are matched wrapper-and-all and left alone, so
// applying the rewrite twice never double-wraps.
func WrapTemplates(s string) string {
	return templateRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "<div") {
			return m
		}
		return `<div class="notranslate">` + m + `</div>`
	})
}

// WrapInlineMath shields \( ... \) spans from translation.
func WrapInlineMath(s string) string {
	return inlineMathRe.ReplaceAllString(s, `<span class="notranslate">$0</span>`)
}

// WrapDisplayMath shields \[ ... \] spans from translation.
func WrapDisplayMath(s string) string {
	return displayMathRe.ReplaceAllString(s, `<span class="notranslate">$0</span>`)
}

// ExtractFragment parses a translated output file back into a fragment:
// identity from the marker attributes, title and summary from the marker
// text, and the body with both markers removed.
func ExtractFragment(contents string) (page.Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return page.Fragment{}, fmt.Errorf("parse fragment: %w", err)
	}

	marker := doc.Find("p." + markerClass).First()
	if marker.Length() == 0 {
		return page.Fragment{}, fmt.Errorf("no provenance marker in fragment")
	}
	lib, _ := marker.Attr(attrLib)
	id, _ := marker.Attr(attrPageID)
	if lib == "" || id == "" {
		return page.Fragment{}, fmt.Errorf("provenance marker missing lib/id attributes")
	}
	frag := page.Fragment{Lib: lib, ID: id, Title: strings.TrimSpace(marker.Text())}
	marker.Remove()

	if sum := doc.Find("p." + summaryClass).First(); sum.Length() > 0 {
		frag.Summary = strings.TrimSpace(sum.Text())
		sum.Remove()
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return page.Fragment{}, fmt.Errorf("serialize fragment body: %w", err)
	}
	frag.Contents = strings.TrimSpace(body)
	return frag, nil
}
