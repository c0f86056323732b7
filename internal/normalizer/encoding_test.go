package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairMojibake(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "enye", input: "Ã±", expected: "ñ"},
		{name: "city name", input: "ParaÃ±aque", expected: "Parañaque"},
		{name: "accent e", input: "BiÃ©n", expected: "Bién"},
		{name: "upper enye", input: "DASMARIÃ‘AS", expected: "DASMARIÑAS"},
		{name: "clean ascii", input: "Calamba", expected: "Calamba"},
		{name: "clean unicode", input: "Parañaque", expected: "Parañaque"},
		{name: "lead without continuation", input: "Ãa", expected: "Ãa"},
		{name: "double encoded", input: "ParaÃƒÂ±aque", expected: "Parañaque"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RepairMojibake(tc.input))
		})
	}
}

func TestDecodeUTF8(t *testing.T) {
	t.Run("valid utf8 untouched", func(t *testing.T) {
		assert.Equal(t, "Parañaque", DecodeUTF8([]byte("Parañaque")))
	})

	t.Run("latin1 bytes reinterpreted", func(t *testing.T) {
		raw := []byte{'P', 'a', 'r', 'a', 0xF1, 'a', 'q', 'u', 'e'}
		assert.Equal(t, "Parañaque", DecodeUTF8(raw))
	})

	t.Run("mixed valid and invalid", func(t *testing.T) {
		raw := append([]byte("Niño "), 0xE9)
		assert.Equal(t, "Niño é", DecodeUTF8(raw))
	})
}

func TestClean(t *testing.T) {
	assert.Equal(t, "City of Parañaque", Clean("  City of  ParaÃ±aque "))
}
