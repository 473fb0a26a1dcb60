package page

import (
	"regexp"
	"strings"
)

// hintDelimiter separates the section number from the title in the final
// path segment, e.g. "2.03%3ASome_Title".
const hintDelimiter = "%3A"

// numPrefixRe accepts dotted section numbers and the reserved back-matter
// token used by the platform for unnumbered trailing sections.
var numPrefixRe = regexp.MustCompile(`^(\d+(\.\d+)*[A-Za-z]?|zz(\.\d+)*)$`)

// ParseSectionHint parses section-numbering hints out of a platform path.
// It looks at the final path segment only: if it splits on the reserved
// delimiter and the first part is a section number (or back-matter token),
// the number and the de-underscored remainder are returned.
func ParseSectionHint(path string) (numPrefix, titleExtract string, ok bool) {
	seg := path
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	parts := strings.SplitN(seg, hintDelimiter, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	if !numPrefixRe.MatchString(parts[0]) {
		return "", "", false
	}
	return parts[0], strings.ReplaceAll(parts[1], "_", " "), true
}
