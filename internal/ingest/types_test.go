package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadJSONShape(t *testing.T) {
	t.Parallel()

	lead := Lead{
		DocumentID: "2014-Smith.pdf",
		SourceURL:  "https://example.org/warrant/2014-Smith.pdf",
		Status:     StatusWarrant,
	}

	data, err := json.Marshal(lead)
	require.NoError(t, err)

	// The queue file is shared with earlier tooling, so the field names are
	// part of the format.
	assert.JSONEq(t, `{
		"name": "2014-Smith.pdf",
		"url": "https://example.org/warrant/2014-Smith.pdf",
		"source_status": "warrant"
	}`, string(data))
}

func TestLeadValidate(t *testing.T) {
	t.Parallel()

	lead := Lead{DocumentID: "2014-Smith.pdf", SourceURL: "https://example.org/a.pdf", Status: StatusCold}
	assert.NoError(t, lead.Validate())

	assert.Error(t, Lead{SourceURL: "https://example.org/a.pdf", Status: StatusCold}.Validate())
	assert.Error(t, Lead{DocumentID: "2014-Smith.pdf", Status: StatusCold}.Validate())
}

func TestCaseRecordValidate(t *testing.T) {
	t.Parallel()

	record := CaseRecord{
		CaseNumber:   "2014-00231",
		Sex:          "N/A",
		Race:         "Other",
		IncidentDate: time.Date(2014, 3, 14, 0, 0, 0, 0, time.UTC),
		Location:     "Denver, CO",
		Status:       StatusCold,
	}
	require.NoError(t, record.Validate())

	missingCase := record
	missingCase.CaseNumber = ""
	assert.Error(t, missingCase.Validate())

	missingDate := record
	missingDate.IncidentDate = time.Time{}
	assert.Error(t, missingDate.Validate())

	missingLocation := record
	missingLocation.Location = ""
	assert.Error(t, missingLocation.Validate())
}

func TestCaseRecordYear(t *testing.T) {
	t.Parallel()

	record := CaseRecord{IncidentDate: time.Date(1985, 7, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 1985, record.Year())
}
