package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInPin = 7

// squareWave drives an input pin from a timer, toggling every half ticks
func squareWave(h *fwHarness, pin GPIOPin, half uint32) *Timer {
	level := false
	t := &Timer{WakeTime: h.m.Now() + half}
	t.Handler = func(t *Timer) uint8 {
		level = !level
		h.m.SetInput(pin, level)
		t.WakeTime += half
		return SF_RESCHEDULE
	}
	h.f.Sched.AddTimer(t)
	return t
}

func TestCounterCountsEdges(t *testing.T) {
	h := newFirmwareHarness(t)
	h.send("config_counter", 2, testInPin, 0)
	h.messages()

	squareWave(h, testInPin, 1000)
	start := h.m.Now()
	h.send("query_counter", 2, start+100, 100, 20000)

	var samples []hostMsg
	for i := 0; i < 10 && len(samples) < 3; i++ {
		h.f.RunOnce()
		samples = append(samples, named(h.messages(), "counter_state")...)
	}
	require.GreaterOrEqual(t, len(samples), 3)

	var lastCount uint32
	for _, smp := range samples {
		oid, next, count, countClock := smp.Args[0], smp.Args[1], smp.Args[2], smp.Args[3]
		assert.Equal(t, uint32(2), oid)
		assert.GreaterOrEqual(t, count, lastCount)
		assert.True(t, TimerIsBefore(countClock, next))
		lastCount = count

		// One edge per half period, give or take the edge in flight
		elapsed := countClock - start
		assert.InDelta(t, elapsed/1000, count, 2)
	}
}

func TestCounterUnknownOID(t *testing.T) {
	h := newFirmwareHarness(t)
	h.send("query_counter", 4, h.m.Now()+100, 100, 1000)
	assert.ErrorIs(t, h.f.Transport.LastError(), ErrUnknownOID)
}

func TestCounterReconfigureReplaces(t *testing.T) {
	h := newFirmwareHarness(t)
	h.send("config_counter", 1, testInPin, 0)
	h.send("query_counter", 1, h.m.Now()+100, 100, 1000)
	first, ok := h.f.Counters.Get(1)
	require.True(t, ok)
	require.True(t, h.f.Sched.IsScheduled(&first.Timer))

	h.send("config_counter", 1, testInPin, 1)
	second, ok := h.f.Counters.Get(1)
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.False(t, h.f.Sched.IsScheduled(&first.Timer))
	assert.True(t, h.m.ReadPin(testInPin), "pull-up reads high")
}

func TestCounterStopsOnShutdown(t *testing.T) {
	h := newFirmwareHarness(t)
	h.send("config_counter", 1, testInPin, 0)
	h.send("query_counter", 1, h.m.Now()+100, 100, 1000)
	ctr, _ := h.f.Counters.Get(1)

	h.send("emergency_stop")
	assert.False(t, h.f.Sched.IsScheduled(&ctr.Timer))
	h.messages()

	h.f.RunOnce()
	assert.Empty(t, named(h.messages(), "counter_state"))
}
