package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-highway/clock"
	"github.com/tsinghua-fib-lab/agentsociety-highway/utils/config"
)

func TestClockAdvance(t *testing.T) {
	c := clock.New(config.ControlStep{Total: 3, Interval: 0.5})
	assert.Equal(t, 0.5, c.DT)
	assert.False(t, c.Finished())
	c.Advance(0.5)
	c.Advance(0.25)
	assert.Equal(t, int32(2), c.InternalStep)
	assert.InDelta(t, 0.75, c.T, 1e-12)
	c.Advance(0)
	assert.True(t, c.Finished())

	c.Init()
	assert.Equal(t, int32(0), c.InternalStep)
	assert.Equal(t, 0.0, c.T)
}

func TestClockUnbounded(t *testing.T) {
	c := clock.New(config.ControlStep{Interval: 1})
	for range 1000 {
		c.Advance(1)
	}
	assert.False(t, c.Finished())
}

func TestClockString(t *testing.T) {
	c := clock.New(config.ControlStep{Interval: 1})
	c.Advance(3725.5)
	assert.Equal(t, "01:02:05", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.InDelta(t, 5.5, s, 1e-9)
}
