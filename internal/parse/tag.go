package parse

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	controlRe = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

const (
	subItemPrefix = "- "
	sectionPrefix = "SECTION:"
)

// NormalizeTag returns the merge identity of an equipment tag: NFC form,
// surrounding whitespace trimmed, upper case. Empty means "no identity".
func NormalizeTag(raw string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(raw)))
}

// Sanitize strips control characters and upper-cases free text for the remote
// payload. The remote script chokes on raw control bytes.
func Sanitize(raw string) string {
	return strings.ToUpper(controlRe.ReplaceAllString(raw, ""))
}

// IsSection reports whether a checklist label is a section marker.
func IsSection(label string) bool {
	return strings.HasPrefix(label, sectionPrefix)
}

// IsSubItem reports whether a checklist label belongs to the nearest preceding
// equipment label.
func IsSubItem(label string) bool {
	return strings.HasPrefix(label, subItemPrefix)
}

// DeriveTag builds the equipment tag for the checklist label at index. A
// sub-item ("- MOTOR") is prefixed with its parent equipment label, so
// "BOMBA 01" followed by "- MOTOR" yields "BOMBA 01 MOTOR".
func DeriveTag(labels []string, index int) string {
	if index < 0 || index >= len(labels) {
		return ""
	}
	label := labels[index]
	tag := label
	if IsSubItem(label) {
		for i := index - 1; i >= 0; i-- {
			parent := labels[i]
			if !IsSubItem(parent) && !IsSection(parent) {
				tag = parent + " " + label
				break
			}
		}
	}
	tag = strings.Replace(tag, subItemPrefix, "", 1)
	return NormalizeTag(spaceRe.ReplaceAllString(tag, " "))
}
