package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickReturnsUsablePort(t *testing.T) {
	p, err := Pick()
	require.NoError(t, err)
	assert.Greater(t, p, 0)
	assert.LessOrEqual(t, p, 65535)
}

func TestPickReturnsDistinctPortsAcrossCalls(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		p, err := Pick()
		require.NoError(t, err)
		// Not a hard guarantee, but with a closed listener the OS
		// practically never hands back the same ephemeral port twice
		// in a tight loop.
		seen[p] = true
	}
	assert.GreaterOrEqual(t, len(seen), 2, "expected multiple distinct ports across 5 calls")
}
