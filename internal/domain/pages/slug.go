package pages

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSlug is used when a name contains no usable characters.
const DefaultSlug = "page"

var (
	// Unicode whitespace, not just ASCII, separates words.
	separatorPattern = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}_]+`)
	invalidPattern   = regexp.MustCompile(`[^a-z0-9-]`)
	dashPattern      = regexp.MustCompile(`-+`)
	lower            = cases.Lower(language.Und)
)

// Slugify derives a URL-safe identifier from a display name.
//
// Characters outside [a-z0-9-] are dropped, not transliterated, so "Café"
// becomes "caf". Existing indexes rely on that mapping.
func Slugify(input string) string {
	slug := lower.String(strings.TrimSpace(input))
	slug = separatorPattern.ReplaceAllString(slug, "-")
	slug = invalidPattern.ReplaceAllString(slug, "")
	slug = dashPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return DefaultSlug
	}
	return slug
}
