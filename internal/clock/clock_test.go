package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceMovesTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)

	c.Advance(90 * time.Minute)

	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}

func TestFake_TickerFiresOnDeadline(t *testing.T) {
	c := NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()

	c.Advance(59 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticker fired before its period elapsed")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-tk.C():
		assert.Equal(t, c.Now(), got)
	default:
		t.Fatal("expected a tick after one minute")
	}
}

func TestFake_TickerDropsMissedTicks(t *testing.T) {
	c := NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()

	c.Advance(10 * time.Minute)

	require.Len(t, tk.C(), 1)
	<-tk.C()

	c.Advance(30 * time.Second)
	assert.Len(t, tk.C(), 0)
	c.Advance(30 * time.Second)
	assert.Len(t, tk.C(), 1)
}

func TestFake_StopRemovesTicker(t *testing.T) {
	c := NewFake(time.Now())
	tk := c.NewTicker(time.Second)
	require.Equal(t, 1, c.Tickers())

	tk.Stop()

	assert.Equal(t, 0, c.Tickers())
	c.Advance(time.Hour)
	assert.Len(t, tk.C(), 0)
}
