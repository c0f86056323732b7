package matcher

import (
	"testing"

	"github.com/psgc-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cities = []models.Record{
	{Code: "043404000", Name: "City of Calamba", Type: "City"},
	{Code: "043405000", Name: "Calauan", Type: "Mun"},
	{Code: "043428000", Name: "City of Santa Rosa", Type: "City"},
	{Code: "043424000", Name: "San Pedro", Type: "City"},
	{Code: "137604000", Name: "City of Parañaque", Type: "City"},
}

func TestParseStrictness(t *testing.T) {
	s, err := ParseStrictness("")
	require.NoError(t, err)
	assert.Equal(t, StrictnessStandard, s)

	s, err = ParseStrictness(" FUZZY ")
	require.NoError(t, err)
	assert.Equal(t, StrictnessFuzzy, s)

	_, err = ParseStrictness("loose")
	assert.Error(t, err)
}

func TestNameMatcher_Tiers(t *testing.T) {
	m := NewNameMatcher(DefaultConfig())

	testCases := []struct {
		name     string
		query    string
		code     string
		strategy MatchStrategy
	}{
		{name: "exact ignores case and spaces", query: "  calauan ", code: "043405000", strategy: MatchStrategyExact},
		{name: "code equality", query: "043424000", code: "043424000", strategy: MatchStrategyCode},
		{name: "accent insensitive", query: "City of Paranaque", code: "137604000", strategy: MatchStrategyAscii},
		{name: "abbreviation folded", query: "City of Sta. Rosa", code: "043428000", strategy: MatchStrategyAscii},
		{name: "substring of option", query: "Calamba", code: "043404000", strategy: MatchStrategySubstring},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			match, ok := m.Match(tc.query, cities)
			require.True(t, ok)
			assert.Equal(t, tc.code, match.Record.Code)
			assert.Equal(t, tc.strategy, match.Strategy)
		})
	}
}

func TestNameMatcher_OptionContainedInQuery(t *testing.T) {
	m := NewNameMatcher(DefaultConfig())

	match, ok := m.Match("San Pedro, Laguna", cities)
	require.True(t, ok)
	assert.Equal(t, "043424000", match.Record.Code)
	assert.Equal(t, MatchStrategySubstring, match.Strategy)
}

func TestNameMatcher_Strict(t *testing.T) {
	m := NewNameMatcher(Config{Strictness: StrictnessStrict})

	_, ok := m.Match("Calamba", cities)
	assert.False(t, ok, "strict không dùng substring")

	match, ok := m.Match("city of calamba", cities)
	require.True(t, ok)
	assert.Equal(t, "043404000", match.Record.Code)
}

func TestNameMatcher_Fuzzy(t *testing.T) {
	typo := "Calmba"

	_, ok := NewNameMatcher(DefaultConfig()).Match(typo, cities)
	assert.False(t, ok)

	match, ok := NewNameMatcher(Config{Strictness: StrictnessFuzzy, FuzzyThreshold: 0.8}).Match(typo, []models.Record{
		{Code: "1", Name: "Calamba"},
		{Code: "2", Name: "Bay"},
	})
	require.True(t, ok)
	assert.Equal(t, "1", match.Record.Code)
	assert.Equal(t, MatchStrategyFuzzy, match.Strategy)
}

func TestNameMatcher_NoMatch(t *testing.T) {
	m := NewNameMatcher(DefaultConfig())

	_, ok := m.Match("Makati", cities)
	assert.False(t, ok)

	_, ok = m.Match("", cities)
	assert.False(t, ok)

	_, ok = m.Match("ab", []models.Record{{Code: "1", Name: "Cabuyao"}})
	assert.False(t, ok, "chuỗi quá ngắn không dùng substring")
}
