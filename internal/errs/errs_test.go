package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	require.True(t, IsTransient(fmt.Errorf("dial failed: %w", ErrTransient)))
	require.True(t, IsTransient(ErrTimeout))
	require.False(t, IsTransient(ErrPermanent))
}

func TestIsPermanent(t *testing.T) {
	require.True(t, IsPermanent(fmt.Errorf("rejected: %w", ErrPermanent)))
	require.True(t, IsPermanent(ErrInvalidArgument))
	require.False(t, IsPermanent(ErrTransient))
}
