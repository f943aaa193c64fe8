package textutil

import "strings"

// unsafePathChars maps separator-like characters to dashes and strips the
// rest of the characters that break common filesystems.
var unsafePathChars = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a display name safe to use as a file name. Slashes,
// backslashes, colons, and asterisks become dashes; other unsafe characters
// are dropped.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(unsafePathChars.Replace(name))
}

// SanitizeToken lowers a value into a filesystem-safe slug of letters,
// digits, hyphens, and underscores. Empty or fully unusable input yields
// "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
