package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"15/03/2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2023-03-15", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15 March 2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"March 15, 2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Date: 15/03/2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"sometime in 2021 probably", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"unknown", time.Time{}},
		{"", time.Time{}},
		// Invalid day/month still yields the year via the rescue scan.
		{"32/13/2023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ParseDate(tt.in)), "ParseDate(%q)", tt.in)
		})
	}
}

func TestParseDateOr(t *testing.T) {
	def := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), ParseDateOr("15/03/2023", def))
	assert.Equal(t, def, ParseDateOr("unknown", def))
	assert.Equal(t, def, ParseDateOr("", def))
}

func TestParseDatePtr(t *testing.T) {
	got := ParseDatePtr("01/06/2025")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *got)

	assert.Nil(t, ParseDatePtr("not a date"))
	assert.Nil(t, ParseDatePtr(""))
}
