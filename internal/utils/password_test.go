package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("open sesame", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "open sesame"))
	assert.False(t, VerifyPassword(hash, "open says me"))
}

func TestHashPasswordClampsBadCost(t *testing.T) {
	// 0 and 99 are outside bcrypt's range; both must still produce a
	// verifiable hash rather than fail.
	for _, cost := range []int{0, 99} {
		hash, err := HashPassword("pw", cost)
		require.NoError(t, err, "cost %d", cost)
		assert.True(t, VerifyPassword(hash, "pw"))
	}
}
