package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterUnityGainAtSteadyState(t *testing.T) {
	f, err := New(0.8)
	require.NoError(t, err)
	f.Reset(0)
	var y float64
	for i := 0; i < 500; i++ {
		y = f.Next(3.0)
	}
	assert.InDelta(t, 3.0, y, 1e-6)
}

func TestFilterResetNoTransientJump(t *testing.T) {
	f, err := New(0.5)
	require.NoError(t, err)
	f.Reset(10.0)
	// Immediately after reset, feeding the same value back must not move
	// the output away from it.
	y := f.Next(10.0)
	assert.InDelta(t, 10.0, y, 1e-9)
}

func TestFilterInvalidPole(t *testing.T) {
	_, err := New(1.0)
	assert.Error(t, err)
	_, err = New(-0.1)
	assert.Error(t, err)
}

func TestBankNextMismatchedLength(t *testing.T) {
	b, err := NewBank([]string{"x", "y"}, 0.5)
	require.NoError(t, err)
	_, err = b.Next([]float64{1})
	assert.Error(t, err)
}

func TestBankTracksIndependently(t *testing.T) {
	b, err := NewBank([]string{"x", "y"}, 0.5)
	require.NoError(t, err)
	require.NoError(t, b.Reset([]float64{0, 0}))
	out, err := b.Next([]float64{10, -10})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, out[0], 1e-9)
	assert.InDelta(t, -5.0, out[1], 1e-9)
}
