package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReservationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateReservationCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestGenerateTransactionCodeIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	a := GenerateTransactionCode("ABCD1234", now)
	b := GenerateTransactionCode("ABCD1234", now)
	c := GenerateTransactionCode("ABCD1234", now.Add(time.Second))
	d := GenerateTransactionCode("WXYZ9876", now)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestGenerateTransactionCodeStaysInSafeRange(t *testing.T) {
	far := time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC)
	code := GenerateTransactionCode("ZZZZZZZZ", far)

	assert.Positive(t, code)
	assert.LessOrEqual(t, code, MaxSafeInteger)
	assert.Less(t, code, int64(1_000_000_000_000))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 5, ParseInt("5", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("abc", 1))
	assert.Equal(t, 1, ParseInt("-3", 1))
}
