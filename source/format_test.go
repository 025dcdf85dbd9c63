package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_ParseDelta(t *testing.T) {
	signed := Format{Columns: Columns{Delta: "amount"}}
	split := Format{Columns: Columns{Debit: "d", Credit: "c"}}
	comma := Format{DecimalComma: true, Columns: Columns{Delta: "amount"}}

	testCases := []struct {
		name   string
		format Format
		delta  string
		debit  string
		credit string
		want   string
	}{
		{"signed", signed, "-12.30", "", "", "-12.3"},
		{"plus sign", signed, "+5", "", "", "5"},
		{"thousands", signed, "1,234.56", "", "", "1234.56"},
		{"spaces", signed, " 1 234.56 ", "", "", "1234.56"},
		{"rounded half to even", signed, "0.125", "", "", "0.12"},
		{"decimal comma", comma, "-1.234,5", "", "", "-1234.5"},
		{"debit", split, "", "10.00", "", "-10"},
		{"signed debit", split, "", "-10.00", "", "-10"},
		{"credit", split, "", "", "7.5", "7.5"},
		{"negated", Format{Negate: true, Columns: Columns{Delta: "amount"}}, "3", "", "", "-3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.format.parseDelta(tc.delta, tc.debit, tc.credit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}

	_, err := signed.parseDelta("twelve", "", "")
	assert.Error(t, err)
}

func TestFormat_ParseDate(t *testing.T) {
	f := Format{DateLayout: "02/01/2006"}
	day, ts, err := f.parseDate(" 15/01/2024 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", day)
	assert.Equal(t, float64(1705276800), ts)

	_, _, err = f.parseDate("2024-01-15")
	assert.Error(t, err)
}

func TestFormat_Defaults(t *testing.T) {
	f := Format{Kind: KindJSON}.withDefaults()
	assert.Equal(t, "*.json", f.Glob)
	assert.Equal(t, "$[*]", f.Records)
	assert.Equal(t, "2006-01-02", f.DateLayout)
}
