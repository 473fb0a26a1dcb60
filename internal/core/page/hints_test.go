package page

import "testing"

func TestParseSectionHint_Numbered(t *testing.T) {
	num, title, ok := ParseSectionHint("2.03%3ASome_Title")
	if !ok {
		t.Fatal("expected hint parse to succeed")
	}
	if num != "2.03" {
		t.Errorf("numPrefix = %q, want %q", num, "2.03")
	}
	if title != "Some Title" {
		t.Errorf("titleExtract = %q, want %q", title, "Some Title")
	}
}

func TestParseSectionHint_NoDelimiter(t *testing.T) {
	_, _, ok := ParseSectionHint("Overview")
	if ok {
		t.Error("expected hint parse to fail without delimiter")
	}
}

func TestParseSectionHint_UsesFinalSegment(t *testing.T) {
	num, title, ok := ParseSectionHint("Book/Chapters/1.1%3AIntro_to_Things")
	if !ok {
		t.Fatal("expected hint parse to succeed")
	}
	if num != "1.1" || title != "Intro to Things" {
		t.Errorf("got (%q, %q)", num, title)
	}
}

func TestParseSectionHint_BackMatter(t *testing.T) {
	num, _, ok := ParseSectionHint("zz%3ABack_Matter")
	if !ok || num != "zz" {
		t.Errorf("back-matter token not accepted: ok=%v num=%q", ok, num)
	}
}

func TestParseSectionHint_NonNumericPrefix(t *testing.T) {
	_, _, ok := ParseSectionHint("Intro%3ASome_Title")
	if ok {
		t.Error("expected non-numeric prefix to be rejected")
	}
}
