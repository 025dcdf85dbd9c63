package books

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
version: 1
derived:
  - name: Dining
    start_value: 10.50
    matchings:
      - match: [COFFEE, RESTAURANT]
  - name: Car
    matchings:
      - account: Checking
        match: [FUEL]
      - account: Card
        match: [GARAGE]
internal:
  - from: Checking
    from_match: [TRANSFER OUT]
    to: Savings
    to_match: [TRANSFER IN]
    strict: true
`

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Derived, 2)
	dining := cfg.Derived[0]
	assert.True(t, dining.IsWildcard())
	assert.True(t, dining.StartValue.Equal(D("10.5")))
	assert.Equal(t, []string{"COFFEE", "RESTAURANT"}, dining.Matchings[0].MatchStrings)

	car := cfg.Derived[1]
	assert.False(t, car.IsWildcard())
	assert.Equal(t, "Card", car.Matchings[1].AccountName)

	require.Len(t, cfg.Internal, 1)
	assert.Equal(t, "Checking -> Savings", cfg.Internal[0].Name())
	assert.True(t, cfg.Internal[0].Strict)
}

func TestDecodeConfig_JSON(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`{"derived":[{"name":"D","matchings":[{"match":["X"]}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, ConfigVersion, cfg.Version)
	assert.Len(t, cfg.Derived, 1)
}

func TestDecodeConfig_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unknown field", "derived:\n  - name: D\n    matches: [X]\n"},
		{"future version", "version: 2\n"},
		{"bad start value", "derived:\n  - name: D\n    start_value: lots\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeConfig_Empty(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Derived)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{
		Derived: []DerivedAccountSpec{
			{Name: "D", Matchings: []Matching{{MatchStrings: []string{"X"}}}},
			{Name: "D", Matchings: []Matching{{MatchStrings: []string{"Y"}}}},
			{Name: "E", Matchings: []Matching{{MatchStrings: []string{"X"}}, {AccountName: "A", MatchStrings: []string{"Y"}}}},
		},
		Internal: []InternalTransactionMapping{
			{FromAccount: "A", ToAccount: "A", FromMatchStrings: []string{"X"}, ToMatchStrings: []string{"Y"}},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)

	var units []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ce *ConfigurationError
		require.True(t, errors.As(e, &ce))
		units = append(units, ce.Unit)
	}
	assert.Equal(t, []string{"D", "E", "A -> A"}, units)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Derived, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
