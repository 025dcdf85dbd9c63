package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Normalizes(t *testing.T) {
	assert.Equal(t, New(2024, time.March, 1), New(2024, time.February, 30))
	assert.Equal(t, "2023-12-31", New(2024, time.January, 0).String())
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-01-05", want: "2024-01-05"},
		{in: "2024-1-5", want: "2024-01-05"},
		{in: " 2024-01-05 ", want: "2024-01-05"},
		{in: "2024-02-30", wantErr: true},
		{in: "05/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseLayout(t *testing.T) {
	got, err := ParseLayout("02/01/2006", "05/01/2024")
	require.NoError(t, err)
	assert.Equal(t, New(2024, time.January, 5), got)

	_, err = ParseLayout("02/01/2006", "2024-01-05")
	assert.ErrorContains(t, err, `invalid date "2024-01-05" for layout "02/01/2006"`)
}

func TestMidnight(t *testing.T) {
	assert.EqualValues(t, 86400, New(1970, time.January, 2).Midnight().Unix())
}

func TestJSON(t *testing.T) {
	d := New(2024, time.March, 1)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
	_, err = json.Marshal(Date{})
	assert.Error(t, err)
}
