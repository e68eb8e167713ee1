package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockAdvancesByStep(t *testing.T) {
	c := NewClock(Epoch, time.Second)

	require.Equal(t, Epoch, c.Now())
	require.Equal(t, Epoch.Add(time.Second), c.Now())
	require.Equal(t, Epoch.Add(2*time.Second), c.Now())
}

func TestFrozenClockNeverAdvances(t *testing.T) {
	c := NewFrozenClock()
	for range 3 {
		require.Equal(t, Epoch, c.Now())
	}
}

func TestClockSet(t *testing.T) {
	c := NewClock(Epoch, time.Minute)
	later := Epoch.Add(time.Hour)
	c.Set(later)
	require.Equal(t, later, c.Now())
	require.Equal(t, later.Add(time.Minute), c.Now())
}

func TestIDGeneratorSequence(t *testing.T) {
	g := NewIDGenerator("")
	require.Equal(t, "flow-1", g.Generate())
	require.Equal(t, "flow-2", g.Generate())

	g = NewIDGenerator("audit")
	require.Equal(t, "audit-1", g.Generate())
}

func TestFixedIDGeneratorExhaustionPanics(t *testing.T) {
	g := NewFixedIDGenerator("a", "b")
	require.Equal(t, "a", g.Generate())
	require.Equal(t, "b", g.Generate())
	require.Panics(t, func() { g.Generate() })
}
