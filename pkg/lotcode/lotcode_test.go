package lotcode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinika/internal/core/id"
)

func TestNext_Format(t *testing.T) {
	gen := New()
	drugID := id.MustParse("0192f3a1-7b00-7000-8000-0000000000aa")
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	code := gen.Next(PrefixPurchase, drugID, now)

	parts := strings.Split(code, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "LOT", parts[0])
	assert.Equal(t, "20260830", parts[1])
	assert.Equal(t, "0192", parts[2])
	assert.Len(t, parts[3], suffixLen)
	for _, c := range parts[3] {
		assert.Contains(t, alphabet, string(c))
	}
}

func TestNext_SuffixVaries(t *testing.T) {
	gen := New()
	drugID := id.New()
	now := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[gen.Next(PrefixReturn, drugID, now)] = true
	}

	// 50 draws from a 32^4 space colliding down to one value would mean a
	// broken suffix generator.
	assert.Greater(t, len(seen), 1)
}

func TestNext_Prefixes(t *testing.T) {
	gen := New()
	drugID := id.New()
	now := time.Now()

	for _, prefix := range []string{PrefixPurchase, PrefixReturn, PrefixAdjustment} {
		code := gen.Next(prefix, drugID, now)
		assert.True(t, strings.HasPrefix(code, prefix+"-"), "code %q should start with %s-", code, prefix)
	}
}
