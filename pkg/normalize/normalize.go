// Package normalize turns album names into the keys used for every equality
// check in zonerama. No other package compares album names directly.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is the canonical form of an album name. It is always derived from a
// name and never stored on its own.
type Key string

func (k Key) String() string { return string(k) }

// countWords are the units of the count labels the site appends in its Czech
// and English locales. They are matched on already folded text, so
// "fotografií" arrives as "fotografii".
const countWords = `(?:fotek|fotky|fotka|fotografii|fotografie|photos|photo|pictures|picture|videi|videa|video|videos|polozek|polozky|polozka|items|item)`

// labelSuffix matches a count label only in the bracketed or separated forms
// the site writes, e.g. "(12 fotek)", "[1 video]", "- 3 photos". A bare
// trailing count such as "Top 10 photos" is part of the album name.
var labelSuffix = regexp.MustCompile(
	`\s*(?:[(\[]\s*\d+\s*` + countWords + `\s*[)\]]|[-–·|,]\s*\d+\s*` + countWords + `)$`,
)

// Normalize folds diacritics, case and whitespace and strips locale labels.
// It is total, deterministic and idempotent.
func Normalize(name string) Key {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = cases.Fold().String(folded)
	folded = strings.Join(strings.Fields(folded), " ")

	for {
		loc := labelSuffix.FindStringIndex(folded)
		if loc == nil {
			break
		}
		rest := strings.TrimSpace(folded[:loc[0]])
		if rest == "" {
			// a name that is nothing but a label stays as it is
			break
		}
		folded = rest
	}

	return Key(folded)
}

// Equal reports whether two names denote the same album
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

var invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFileName replaces characters that are invalid in file names with
// underscores and trims surrounding spaces and dots. It predicts the name a
// browser gives to a saved album archive.
func SanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		return "unnamed"
	}
	return name
}
