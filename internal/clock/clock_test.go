package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_NextIsStrictlyIncreasing(t *testing.T) {
	c := New()
	key := "s1/1"

	a := c.Next(key)
	b := c.Next(key)
	require.True(t, a.Before(b))
	require.Equal(t, -1, a.Compare(b))
}

func TestClock_NextBumpsOnStalledWallClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWithSource(func() time.Time { return fixed })
	key := "s1/1"

	a := c.Next(key)
	b := c.Next(key)
	require.True(t, a.Before(b), "second timestamp must sort after the first even with a stalled wall clock")
	require.True(t, b.Wall.After(a.Wall))
}

func TestClock_NextIsIndependentPerKey(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWithSource(func() time.Time { return fixed })

	a := c.Next("s1/1")
	b := c.Next("s2/1")
	require.Equal(t, fixed, a.Wall)
	require.Equal(t, fixed, b.Wall)
}

func TestClock_Seed(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWithSource(func() time.Time { return fixed })
	key := "s1/1"

	c.Seed(key, Timestamp{Wall: fixed.Add(time.Hour), Seq: 99})
	next := c.Next(key)
	require.True(t, next.Wall.After(fixed), "Next must sort after the seeded high-water mark")
}

func TestClock_SeedIgnoresEarlierValue(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	c := NewWithSource(func() time.Time { return fixed })
	key := "s1/1"

	c.Seed(key, Timestamp{Wall: fixed.Add(-time.Hour), Seq: 1})
	next := c.Next(key)
	require.Equal(t, fixed, next.Wall)
}

func TestTimestamp_CompareTieBreaksOnSeq(t *testing.T) {
	wall := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Timestamp{Wall: wall, Seq: 1}
	b := Timestamp{Wall: wall, Seq: 2}
	require.True(t, a.Before(b))
	require.Equal(t, 0, a.Compare(a))
}
