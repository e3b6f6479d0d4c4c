package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCaseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"2014-00231", "2014-00231"},
		{"2014–00231", "2014-00231"},
		{"2014 00231", "2014-00231"},
		{"2014 – 00231", "2014-00231"},
		{"  85-01442 ", "85-01442"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCaseNumber(tt.raw), "raw %q", tt.raw)
	}
}

func TestNormalizeSex(t *testing.T) {
	t.Parallel()

	got, mapped := NormalizeSex("Female")
	assert.True(t, mapped)
	assert.Equal(t, "F", got)

	got, mapped = NormalizeSex("male")
	assert.True(t, mapped)
	assert.Equal(t, "M", got)

	got, mapped = NormalizeSex("Unknown")
	assert.False(t, mapped)
	assert.Equal(t, "N/A", got)

	got, mapped = NormalizeSex("")
	assert.False(t, mapped)
	assert.Equal(t, "N/A", got)
}

func TestNormalizeRace(t *testing.T) {
	t.Parallel()

	got, mapped := NormalizeRace("Caucasian")
	assert.True(t, mapped)
	assert.Equal(t, "White", got)

	got, mapped = NormalizeRace("pacific islander")
	assert.True(t, mapped)
	assert.Equal(t, "Pacific Islander", got)

	got, mapped = NormalizeRace("Martian")
	assert.False(t, mapped)
	assert.Equal(t, "Other", got)
}

func TestParseAge(t *testing.T) {
	t.Parallel()

	age := ParseAge(" 23 ")
	require.NotNil(t, age)
	assert.Equal(t, 23, *age)

	assert.Nil(t, ParseAge("twenty"))
	assert.Nil(t, ParseAge(""))
}

func TestParseIncidentDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2014, 3, 14, 0, 0, 0, 0, time.UTC)

	got, err := ParseIncidentDate("03/14/2014")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseIncidentDate("3 - 14 - 2014")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseIncidentDate("13/45/2014")
	require.Error(t, err)
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", CollapseWhitespace("  a\n b\t\tc "))
}
