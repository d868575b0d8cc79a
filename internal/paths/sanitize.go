package paths

import (
	"strings"
	"unicode"
)

// invalidChars are replaced with underscores in every path component.
const invalidChars = `<>:"/\|?*`

var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizeComponent makes one path component safe on every supported
// filesystem. Invalid and control characters become underscores, runs of
// underscores collapse, leading and trailing dots and spaces are trimmed,
// empty results become "unknown", and reserved device names get a leading
// underscore.
func SanitizeComponent(component string) string {
	var b strings.Builder
	b.Grow(len(component))
	for _, r := range component {
		switch {
		case strings.ContainsRune(invalidChars, r):
			b.WriteByte('_')
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case unicode.IsControl(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := collapseUnderscores(b.String())
	out = strings.Trim(out, ". ")
	if out == "" {
		return "unknown"
	}
	if isReservedName(out) {
		out = "_" + out
	}
	return out
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

func isReservedName(component string) bool {
	base := component
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	_, reserved := reservedNames[strings.ToLower(base)]
	return reserved
}

// HasInvalidChars reports whether a component still carries characters from
// the forbidden set.
func HasInvalidChars(component string) bool {
	return strings.ContainsAny(component, invalidChars)
}
