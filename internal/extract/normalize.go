package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	titleCaser    = cases.Title(language.AmericanEnglish)
)

// sexTable folds raw recognized values into the canonical sex codes.
// Anything else defaults to "N/A" with a warning.
var sexTable = map[string]string{
	"Female": "F",
	"Male":   "M",
}

// raceTable folds raw recognized values and known aliases into the fixed
// category set. Anything else defaults to "Other" with a warning.
var raceTable = map[string]string{
	"White":            "White",
	"Black":            "Black",
	"Hispanic":         "Hispanic",
	"Asian":            "Asian",
	"Pacific Islander": "Pacific Islander",
	"Native American":  "Native American",
	"Caucasian":        "White",
}

var caseSeparatorRun = regexp.MustCompile(`[\s\x{2013}-]+`)

// NormalizeCaseNumber folds en-dash, space, and hyphen separator runs into
// single hyphens, yielding the canonical YYYY-NNNNN form.
func NormalizeCaseNumber(raw string) string {
	return caseSeparatorRun.ReplaceAllString(strings.TrimSpace(raw), "-")
}

// NormalizeSex maps a raw value through the sex table. The second return is
// false when the value fell back to the default.
func NormalizeSex(raw string) (string, bool) {
	key := titleCaser.String(strings.TrimSpace(raw))
	if canonical, ok := sexTable[key]; ok {
		return canonical, true
	}
	return "N/A", false
}

// NormalizeRace maps a raw value through the race category table. The second
// return is false when the value fell back to the default.
func NormalizeRace(raw string) (string, bool) {
	key := titleCaser.String(strings.TrimSpace(raw))
	if canonical, ok := raceTable[key]; ok {
		return canonical, true
	}
	return "Other", false
}

// NormalizeName title-cases a victim name.
func NormalizeName(raw string) string {
	return titleCaser.String(strings.TrimSpace(raw))
}

// ParseAge parses an age value. Anything that is not an integer yields nil;
// a garbled age is not worth failing the document over.
func ParseAge(raw string) *int {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &age
}

// ParseIncidentDate parses MM/DD/YYYY, tolerating hyphen separators and
// stray spaces from recognition noise.
func ParseIncidentDate(raw string) (time.Time, error) {
	clean := strings.ReplaceAll(raw, " ", "")
	clean = strings.ReplaceAll(clean, "-", "/")
	t, err := time.Parse("1/2/2006", clean)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse incident date %q: %w", raw, err)
	}
	return t, nil
}

// CollapseWhitespace folds internal whitespace runs to single spaces.
func CollapseWhitespace(raw string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
}
