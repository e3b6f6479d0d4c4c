package extract

import "errors"

// Extraction failures name the required field that was absent. Each fails
// only the single document it came from; the lead stays queued for retry.
var (
	ErrMissingCaseNumber   = errors.New("case number is required and was not found")
	ErrMissingIncidentDate = errors.New("incident date is required and was not found")
	ErrMissingLocation     = errors.New("location is required and was not found")
)

// FailureLabel maps an extraction error onto a short metric/log label.
func FailureLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCaseNumber):
		return "missing_case_number"
	case errors.Is(err, ErrMissingIncidentDate):
		return "missing_incident_date"
	case errors.Is(err, ErrMissingLocation):
		return "missing_location"
	default:
		return "recognition_error"
	}
}
