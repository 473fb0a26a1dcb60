package transform

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"textbridge/internal/core/page"
)

func TestWrapTemplates(t *testing.T) {
	in := `<p>Use {{template.name()}} here</p>`
	out := WrapTemplates(in)
	want := `<p>Use <div class="notranslate">{{template.name()}}</div> here</p>`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestWrapTemplates_Idempotent(t *testing.T) {
	in := `<p>{{alpha}} and {{beta.gamma}}</p>`
	once := WrapTemplates(in)
	twice := WrapTemplates(once)
	if once != twice {
		t.Errorf("double application changed output:\nonce:  %q\ntwice: %q", once, twice)
	}
	if strings.Count(twice, "notranslate") != 2 {
		t.Errorf("expected 2 wrappers, got %d", strings.Count(twice, "notranslate"))
	}
}

func TestWrapTemplates_IgnoresNonTokenBraces(t *testing.T) {
	in := `<p>{{not a token!}}</p>`
	if out := WrapTemplates(in); out != in {
		t.Errorf("non-token braces were wrapped: %q", out)
	}
}

func TestWrapInlineMath(t *testing.T) {
	in := `The value \(x^2 + y\) grows.`
	out := WrapInlineMath(in)
	want := `The value <span class="notranslate">\(x^2 + y\)</span> grows.`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestWrapInlineMath_EscapedDelimiter(t *testing.T) {
	// The escaped \) must stay inside the span.
	in := `\(a \\\) b\)`
	out := WrapInlineMath(in)
	if !strings.Contains(out, `<span class="notranslate">\(a \\\) b\)</span>`) {
		t.Errorf("escaped delimiter terminated the span: %q", out)
	}
}

func TestWrapDisplayMath(t *testing.T) {
	in := `Before \[E = mc^2\] after.`
	out := WrapDisplayMath(in)
	want := `Before <span class="notranslate">\[E = mc^2\]</span> after.`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_ThenExtractFragment(t *testing.T) {
	n := &page.Node{Lib: "chem", ID: "10", Title: "Chapter 1", Summary: "What this covers"}
	out := Apply(`<p>Body with {{tok}} and \(x\)</p>`, n)

	frag, err := ExtractFragment(out)
	if err != nil {
		t.Fatalf("ExtractFragment: %v", err)
	}
	if frag.Lib != "chem" || frag.ID != "10" {
		t.Errorf("identity = (%q, %q), want (chem, 10)", frag.Lib, frag.ID)
	}
	if frag.Title != "Chapter 1" {
		t.Errorf("title = %q", frag.Title)
	}
	if frag.Summary != "What this covers" {
		t.Errorf("summary = %q", frag.Summary)
	}
	if strings.Contains(frag.Contents, "origin-meta") || strings.Contains(frag.Contents, "origin-summary") {
		t.Errorf("markers not removed from body: %q", frag.Contents)
	}
	if !strings.Contains(frag.Contents, "Body with") {
		t.Errorf("body lost: %q", frag.Contents)
	}
}

func TestExtractFragment_NoMarker(t *testing.T) {
	if _, err := ExtractFragment("<p>plain</p>"); err == nil {
		t.Fatal("expected error for fragment without provenance marker")
	}
}

func TestProvenance_MarkerTextIsTranslatable(t *testing.T) {
	block := Provenance("chem", "10", "Chemistry Basics", "An overview")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Find("p.origin-meta").HasClass("notranslate") {
		t.Error("identity marker is shielded; its text carries the title through translation")
	}
	if doc.Find("p.origin-summary").HasClass("notranslate") {
		t.Error("summary marker is shielded")
	}
}

// translateHonoringShields rewrites every text node not inside a
// notranslate element, the way a markup-aware translator would.
func translateHonoringShields(t *testing.T, in string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var walk func(n *html.Node, shielded bool)
	walk = func(n *html.Node, shielded bool) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "class" && strings.Contains(a.Val, "notranslate") {
					shielded = true
				}
			}
		}
		if n.Type == html.TextNode && !shielded && strings.TrimSpace(n.Data) != "" {
			n.Data = "[ES]" + n.Data
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, shielded)
		}
	}
	body := doc.Find("body")
	for _, n := range body.Nodes {
		walk(n, false)
	}
	out, err := body.Html()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return out
}

func TestApply_TranslatedTitleSurvivesRoundTrip(t *testing.T) {
	n := &page.Node{Lib: "chem", ID: "10", Title: "Chemistry Basics", Summary: "An overview"}
	out := translateHonoringShields(t, Apply(`<p>Body text with {{tok}} and \(x\)</p>`, n))

	frag, err := ExtractFragment(out)
	if err != nil {
		t.Fatalf("ExtractFragment: %v", err)
	}
	if frag.Title != "[ES]Chemistry Basics" {
		t.Errorf("title = %q, want the translated title back", frag.Title)
	}
	if frag.Summary != "[ES]An overview" {
		t.Errorf("summary = %q, want the translated summary back", frag.Summary)
	}
	if !strings.Contains(frag.Contents, "[ES]Body text") {
		t.Errorf("body not translated: %q", frag.Contents)
	}
	if !strings.Contains(frag.Contents, "{{tok}}") || !strings.Contains(frag.Contents, `\(x\)`) {
		t.Errorf("shielded tokens altered: %q", frag.Contents)
	}
}

func TestProvenance_NoSummaryElementWhenEmpty(t *testing.T) {
	block := Provenance("chem", "10", "Title", "")
	if strings.Contains(block, "origin-summary") {
		t.Errorf("summary element present for empty summary: %q", block)
	}
}
