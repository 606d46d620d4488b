package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := IntToUint32(123)
		require.NoError(t, err)
		assert.Equal(t, uint32(123), got)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		assert.Error(t, err)
	})
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.Error(t, err)
}

func TestShapeRoundTrip(t *testing.T) {
	wire, err := ShapeToUint64([]int{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4, 5}, wire)

	back, err := ShapeFromUint64(wire)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, back)

	_, err = ShapeToUint64([]int{1, -2})
	assert.Error(t, err)
}

func TestMulInt(t *testing.T) {
	got, err := MulInt(6, 7)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = MulInt(math.MaxInt, 2)
	assert.Error(t, err)

	got, err = MulInt(0, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
