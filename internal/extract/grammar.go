package extract

import (
	"regexp"
	"strings"
)

// FieldExtractor matches one labeled field against recognized text. The
// grammar for this document layout is a set of named extractors, so a new
// layout only needs a new set, not changes to the engine.
type FieldExtractor struct {
	Name    string
	pattern *regexp.Regexp
	guarded bool
}

// labelGuard rejects captures that are themselves a field label. Scanned
// documents with several empty fields stacked together otherwise yield
// matches like "Victim: Age" where the next label bleeds into the value.
// RE2 has no lookahead, so the guard runs after capture.
var labelGuard = regexp.MustCompile(`(?i)^(?:case|date|location|victim|age|sex|race|synopsis)\b`)

// Extract returns the first captured value for the field, or ok=false when
// the text has no usable match.
func (f FieldExtractor) Extract(text string) (string, bool) {
	m := f.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return "", false
	}
	if f.guarded && labelGuard.MatchString(value) {
		return "", false
	}
	return value, true
}

// labeledLine builds the common "Label: value-until-end-of-line" extractor.
func labeledLine(name string) FieldExtractor {
	return FieldExtractor{
		Name:    name,
		pattern: regexp.MustCompile(`(?i)` + name + `\s*:?\s*([^` + "\n" + `]+)`),
		guarded: true,
	}
}

// Grammar is the extractor set for the agency's one-page case summaries.
type Grammar struct {
	CaseNumber   FieldExtractor
	CaseFallback FieldExtractor
	Victim       FieldExtractor
	Age          FieldExtractor
	Sex          FieldExtractor
	Race         FieldExtractor
	IncidentDate FieldExtractor
	Location     FieldExtractor
	Synopsis     FieldExtractor
}

// DefaultGrammar matches the layout the agency has published since the
// scanned summaries went online.
func DefaultGrammar() Grammar {
	return Grammar{
		// "Case" label followed by a year/number token with optional
		// separators (#, |, comma, colon). The separator inside the token
		// may be a run of hyphens, en dashes, or whitespace; normalization
		// folds the run into one hyphen.
		CaseNumber: FieldExtractor{
			Name:    "Case",
			pattern: regexp.MustCompile(`(?i)Case\s*[#|,]?\s*:?\s*(\d{2,4}[-\x{2013}\s]+\d+)`),
		},
		// Some summaries carry the number as a bare standalone line.
		CaseFallback: FieldExtractor{
			Name:    "Case",
			pattern: regexp.MustCompile(`(?m)^\s*(\d{4}-\d{5,6})\s*$`),
		},
		Victim: labeledLine("Victim"),
		Age:    labeledLine("Age"),
		Sex:    labeledLine("Sex"),
		Race:   labeledLine("Race"),
		IncidentDate: FieldExtractor{
			Name:    "Date",
			pattern: regexp.MustCompile(`(?i)Date\s*:?\s*(\d{1,2}\s*[/-]\s*\d{1,2}\s*[/-]\s*\d{4})`),
		},
		Location: labeledLine("Location"),
		// Free text up to a blank-line terminator.
		Synopsis: FieldExtractor{
			Name:    "Synopsis",
			pattern: regexp.MustCompile(`(?is)Synopsis\s*:?\s*(.*?)\n\s*\n`),
		},
	}
}
