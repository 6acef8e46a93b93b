package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeExpr_Yesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	after, before, err := ParseTimeExpr("yesterday", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), after)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), before)
}

func TestParseTimeExpr_DaysAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	after, before, err := ParseTimeExpr("2 days ago", now)
	require.NoError(t, err)
	require.True(t, after.Before(before))
	require.Equal(t, now, before)
}

func TestParseTimeExpr_Invalid(t *testing.T) {
	_, _, err := ParseTimeExpr("next tuesday maybe", time.Now())
	require.Error(t, err)
}

func TestParseTimeExpr_ThisMonth(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	after, before, err := ParseTimeExpr("this month", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), after)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), before)
}

func TestNormalizePair(t *testing.T) {
	a, b := NormalizePair("zzz", "aaa")
	require.Equal(t, "aaa", a)
	require.Equal(t, "zzz", b)
}
