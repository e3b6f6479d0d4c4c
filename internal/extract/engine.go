// Package extract turns recognized document text into validated case records.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// Engine runs the recognition collaborator and the field-extraction grammar
// over fetched document bytes.
type Engine struct {
	recognizer ingest.Recognizer
	grammar    Grammar
	logger     *zap.Logger
}

// New builds an Engine around a recognizer and the default grammar.
func New(recognizer ingest.Recognizer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		recognizer: recognizer,
		grammar:    DefaultGrammar(),
		logger:     logger,
	}
}

// ExtractRecord recognizes the document bytes and extracts a record.
// Recognition failures and missing required fields fail only this document.
func (e *Engine) ExtractRecord(ctx context.Context, document []byte, status ingest.Status) (ingest.CaseRecord, []ingest.Warning, error) {
	text, err := e.recognizer.Recognize(ctx, document)
	if err != nil {
		return ingest.CaseRecord{}, nil, fmt.Errorf("recognize document: %w", err)
	}
	return e.ExtractFromText(text, status)
}

// ExtractFromText applies the grammar to already-recognized text. Either a
// complete, normalized record comes back, or a named failure; a partial
// extraction is discarded whole.
func (e *Engine) ExtractFromText(text string, status ingest.Status) (ingest.CaseRecord, []ingest.Warning, error) {
	caseRaw, ok := e.grammar.CaseNumber.Extract(text)
	if !ok {
		caseRaw, ok = e.grammar.CaseFallback.Extract(text)
	}
	if !ok {
		return ingest.CaseRecord{}, nil, ErrMissingCaseNumber
	}
	caseNumber := NormalizeCaseNumber(caseRaw)

	var warnings []ingest.Warning
	warn := func(field, raw string) {
		warnings = append(warnings, ingest.Warning{
			Field:      field,
			RawValue:   raw,
			CaseNumber: caseNumber,
		})
	}

	record := ingest.CaseRecord{
		CaseNumber: caseNumber,
		Status:     status,
	}

	if raw, ok := e.grammar.Victim.Extract(text); ok {
		victim := NormalizeName(raw)
		record.Victim = &victim
	}

	if raw, ok := e.grammar.Age.Extract(text); ok {
		record.Age = ParseAge(raw)
	}

	sexRaw, _ := e.grammar.Sex.Extract(text)
	sex, mapped := NormalizeSex(sexRaw)
	if !mapped {
		warn("sex", sexRaw)
	}
	record.Sex = sex

	raceRaw, _ := e.grammar.Race.Extract(text)
	race, mapped := NormalizeRace(raceRaw)
	if !mapped {
		warn("race", raceRaw)
	}
	record.Race = race

	dateRaw, ok := e.grammar.IncidentDate.Extract(text)
	if !ok {
		return ingest.CaseRecord{}, nil, ErrMissingIncidentDate
	}
	incidentDate, err := ParseIncidentDate(dateRaw)
	if err != nil {
		return ingest.CaseRecord{}, nil, fmt.Errorf("%w: %v", ErrMissingIncidentDate, err)
	}
	record.IncidentDate = incidentDate

	location, ok := e.grammar.Location.Extract(text)
	if !ok {
		return ingest.CaseRecord{}, nil, ErrMissingLocation
	}
	record.Location = location

	if raw, ok := e.grammar.Synopsis.Extract(text); ok {
		synopsis := CollapseWhitespace(raw)
		record.Synopsis = &synopsis
	}

	for _, w := range warnings {
		e.logger.Warn("normalization fallback",
			zap.String("case", w.CaseNumber),
			zap.String("field", w.Field),
			zap.String("raw", w.RawValue),
		)
	}

	if err := record.Validate(); err != nil {
		return ingest.CaseRecord{}, nil, fmt.Errorf("validate record: %w", err)
	}
	return record, warnings, nil
}
