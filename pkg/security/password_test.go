package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCompareRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(4)

	hash, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.NoError(t, hasher.Compare(hash, "hunter2hunter2"))
	assert.Error(t, hasher.Compare(hash, "hunter2wrong"))
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher := NewBcryptHasher(4)

	_, err := hasher.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestOutOfRangeCostFallsBack(t *testing.T) {
	// Cost 0 is below bcrypt.MinCost; the hasher must still work.
	hasher := NewBcryptHasher(0)

	hash, err := hasher.Hash("valid-password")
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(hash, "valid-password"))
}
