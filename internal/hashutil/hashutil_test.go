package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStringsSeparatesParts(t *testing.T) {
	assert.NotEqual(t, HashStrings("ab", "c"), HashStrings("a", "bc"))
	assert.Equal(t, HashStrings("x", "y"), HashStrings("x", "y"))
	assert.Len(t, HashStrings(), 64)
}

func TestShortHash(t *testing.T) {
	full := HashStrings("ETH", "binance")
	assert.Equal(t, full[:16], ShortHash(16, "ETH", "binance"))
	assert.Equal(t, full, ShortHash(0, "ETH", "binance"))
	assert.Equal(t, full, ShortHash(100, "ETH", "binance"))
}
