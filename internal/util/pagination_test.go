package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(1, 10)
	require.Equal(t, 0, offset)
	require.Equal(t, 10, limit)

	offset, limit = Calculate(3, 5)
	require.Equal(t, 10, offset)
	require.Equal(t, 5, limit)
}

func TestCalculateClamps(t *testing.T) {
	offset, limit := Calculate(0, 0)
	require.Equal(t, 0, offset)
	require.Equal(t, DefaultPerPage, limit)

	offset, limit = Calculate(2, 500)
	require.Equal(t, DefaultPerPage, offset)
	require.Equal(t, DefaultPerPage, limit)

	offset, limit = Calculate(-3, 10)
	require.Equal(t, 0, offset)
	require.Equal(t, 10, limit)
}
