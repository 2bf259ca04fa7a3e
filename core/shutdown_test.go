package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reasonTestFirst  = StaticString("test fault one")
	reasonTestSecond = StaticString("test fault two")
)

func TestShutdownFromTask(t *testing.T) {
	s, m, rec := newTestScheduler(t, 0)
	var tr tracer
	pending := tr.timer("pending", m.Now()+500000)

	cleanups := 0
	s.DeclareShutdown(func(s *Scheduler) {
		cleanups++
		st, _ := s.ShutdownStatus()
		assert.Equal(t, StateCleaningUp, st)
	})
	fault := false
	s.DeclareTask(func(s *Scheduler) {
		if fault {
			s.Shutdown(reasonTestFirst)
			t.Fatal("Shutdown returned")
		}
	})
	s.Start()
	s.AddTimer(pending)
	s.RunOnce()
	require.True(t, s.IsScheduled(pending))

	fault = true
	m.Raise(func() { s.WakeTasks() })
	s.RunOnce()

	st, reason := s.ShutdownStatus()
	assert.Equal(t, StateShutdown, st)
	assert.Equal(t, reasonTestFirst, reason)
	assert.Equal(t, 1, cleanups)
	assert.False(t, s.IsScheduled(pending), "shutdown discards timers")
	assert.Equal(t, 0, s.PendingTimers())
	assert.True(t, m.IRQEnabled())

	reports := rec.named("shutdown")
	require.Len(t, reports, 1)
	assert.Equal(t, uint32(reasonTestFirst), reports[0].Args[1])
}

func TestShutdownReportedOnce(t *testing.T) {
	s, _, rec := newTestScheduler(t, 0)
	cleanups := 0
	s.DeclareShutdown(func(s *Scheduler) { cleanups++ })
	s.Start()

	s.Guard(func() { s.Shutdown(reasonTestFirst) })
	s.Guard(func() { s.Shutdown(reasonTestSecond) })

	_, reason := s.ShutdownStatus()
	assert.Equal(t, reasonTestFirst, reason, "the first reason stands")
	assert.Len(t, rec.named("shutdown"), 1)
	assert.Equal(t, 2, cleanups, "cleanup runs on every fault")
}

func TestShutdownIgnoredDuringCleanup(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	var order []string
	s.DeclareShutdown(func(s *Scheduler) {
		order = append(order, "a")
		s.Shutdown(reasonTestSecond)
		order = append(order, "a-continued")
	})
	s.DeclareShutdown(func(s *Scheduler) {
		order = append(order, "b")
	})
	s.Start()

	s.Guard(func() { s.Shutdown(reasonTestFirst) })

	assert.Equal(t, []string{"a", "a-continued", "b"}, order)
	st, reason := s.ShutdownStatus()
	assert.Equal(t, StateShutdown, st)
	assert.Equal(t, reasonTestFirst, reason)
}

func TestAddTimerWhileShutdown(t *testing.T) {
	s, m, _ := newTestScheduler(t, 0)
	s.Start()
	s.Guard(func() { s.Shutdown(reasonTestFirst) })

	var tr tracer
	late := tr.timer("late", m.Now()+1000)
	s.AddTimer(late)
	assert.False(t, s.IsScheduled(late))
	assert.Equal(t, 0, s.PendingTimers())
}

func TestClearShutdown(t *testing.T) {
	s, m, rec := newTestScheduler(t, 0)
	s.Start()
	s.Guard(func() { s.Shutdown(reasonTestFirst) })
	require.True(t, s.IsShutdown())

	s.Guard(s.ClearShutdown)
	assert.False(t, s.IsShutdown())

	var tr tracer
	s.AddTimer(tr.timer("again", m.Now()+1000))
	assert.Equal(t, 1, s.PendingTimers())

	// A later fault is a new episode and is reported again
	s.Guard(func() { s.Shutdown(reasonTestSecond) })
	reports := rec.named("shutdown")
	require.Len(t, reports, 2)
	assert.Equal(t, uint32(reasonTestSecond), reports[1].Args[1])
}

func TestClearShutdownWhenNotShutdown(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	s.Start()

	s.Guard(s.ClearShutdown)

	st, reason := s.ShutdownStatus()
	assert.Equal(t, StateShutdown, st)
	assert.Equal(t, ReasonClearNotShutdown, reason)
}

func TestRequestShutdownIgnoredWhenShutdown(t *testing.T) {
	s, _, rec := newTestScheduler(t, 0)
	s.Start()
	s.Guard(func() { s.Shutdown(reasonTestFirst) })

	returned := false
	s.Guard(func() {
		s.RequestShutdown(reasonTestSecond)
		returned = true
	})
	assert.True(t, returned)
	_, reason := s.ShutdownStatus()
	assert.Equal(t, reasonTestFirst, reason)
	assert.Len(t, rec.named("shutdown"), 1)
}

func TestTimerTooClose(t *testing.T) {
	s, m, rec := newTestScheduler(t, 0)
	s.Start()
	m.Advance(1000)

	var tr tracer
	s.Guard(func() {
		s.AddTimer(tr.timer("stale", m.Now()-1))
	})
	s.Guard(func() {
		s.AddTimer(tr.timer("stale again", m.Now()-1))
	})

	_, reason := s.ShutdownStatus()
	assert.Equal(t, ReasonTimerTooClose, reason)
	assert.Empty(t, tr.fired)
	assert.Len(t, rec.named("shutdown"), 1)
}

func TestSentinelHandlerShutsDown(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	s.Start()
	s.Guard(func() { s.sentinel.Handler(&s.sentinel) })

	_, reason := s.ShutdownStatus()
	assert.Equal(t, ReasonSentinelCalled, reason)
}

func TestInterruptFaultIsParked(t *testing.T) {
	s, _, rec := newTestScheduler(t, 0)
	runs := 0
	s.DeclareTask(func(s *Scheduler) { runs++ })
	s.Start()

	assert.True(t, s.InterruptGuard(func() { s.Shutdown(reasonTestFirst) }))
	assert.True(t, s.InterruptGuard(func() { s.Shutdown(reasonTestSecond) }))
	assert.False(t, s.IsShutdown(), "handled by the main loop, not the interrupt")

	s.RunOnce()

	assert.Equal(t, 0, runs, "tasks do not run in a faulted cycle")
	st, reason := s.ShutdownStatus()
	assert.Equal(t, StateShutdown, st)
	assert.Equal(t, reasonTestFirst, reason)
	assert.Len(t, rec.named("shutdown"), 1)

	s.RunOnce()
	assert.Equal(t, 1, runs)
	assert.Len(t, rec.named("shutdown"), 1)
}

func TestInterruptGuardPassesThrough(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	ran := false
	assert.False(t, s.InterruptGuard(func() { ran = true }))
	assert.True(t, ran)
}

func TestTimerCallbackFault(t *testing.T) {
	s, m, _ := newTestScheduler(t, 0)
	s.Start()

	bad := &Timer{
		WakeTime: m.Now() + 1000,
		Handler: func(t *Timer) uint8 {
			s.Shutdown(reasonTestFirst)
			return SF_DONE
		},
	}
	s.AddTimer(bad)
	// The first interrupt may defer to the busy main loop
	for i := 0; !s.pendingShutdown; i++ {
		require.Less(t, i, 10)
		m.Advance(1000)
	}

	assert.False(t, s.IsShutdown())
	_, armed := m.Alarm()
	assert.False(t, armed, "compare unit stays disarmed until cleanup")

	s.RunOnce()
	_, reason := s.ShutdownStatus()
	assert.Equal(t, reasonTestFirst, reason)
	_, armed = m.Alarm()
	assert.True(t, armed)
}

func TestForeignPanicPropagates(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	assert.PanicsWithValue(t, "boom", func() {
		s.Guard(func() { panic("boom") })
	})
	assert.False(t, s.IsShutdown())
}

func TestShutdownStateString(t *testing.T) {
	assert.Equal(t, "not_shutdown", StateNotShutdown.String())
	assert.Equal(t, "shutdown", StateShutdown.String())
	assert.Equal(t, "cleaning_up", StateCleaningUp.String())
	assert.Equal(t, "unknown", ShutdownState(9).String())
}
