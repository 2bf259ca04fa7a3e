package core

import "sync/atomic"

// PeriodicIntervalUS is the period of the resident liveness timer
const PeriodicIntervalUS = 100000

// TimerKickTicks is how far ahead timer_kick arms the compare unit
const TimerKickTicks = 50

// Scheduler is the firmware's single scheduling context: the ordered timer
// list, the task wake state and the shutdown machine. One instance drives
// one hardware tick-compare unit. Tests create isolated instances.
//
// The list always ends in the sentinel timer and always contains the
// periodic timer, so it is never empty. The deleted timer is a placeholder
// that is only ever linked as the list head; it stands in for a head that
// was removed or displaced so an in-flight dispatch sees a valid node.
type Scheduler struct {
	timer TimerDriver
	irq   IRQController
	out   Sender
	decl  Declarations

	timerList  *Timer
	lastInsert *Timer
	periodic   Timer
	sentinel   Timer
	deleted    Timer

	periodicTicks uint32

	tasksStatus atomic.Int32

	shutdownStatus  ShutdownState
	shutdownReason  ReasonCode
	pendingShutdown bool
	pendingReason   ReasonCode

	repeatUntil uint32
	loopStart   uint32
	stats       statsState
	started     bool
}

// NewScheduler creates a scheduler bound to the given hardware. The
// periodic timer is due one interval after the current tick.
func NewScheduler(timer TimerDriver, irq IRQController, out Sender) *Scheduler {
	if out == nil {
		out = SenderFunc(func(string, ...uint32) {})
	}
	s := &Scheduler{
		timer:         timer,
		irq:           irq,
		out:           out,
		periodicTicks: TimerFromUS(PeriodicIntervalUS),
	}
	s.periodic.Handler = s.periodicEvent
	s.sentinel.Handler = s.sentinelEvent
	s.deleted.Handler = deletedEvent

	s.periodic.WakeTime = timer.ReadTime() + s.periodicTicks
	s.sentinel.WakeTime = s.periodic.WakeTime + 0x80000000
	s.periodic.Next = &s.sentinel
	s.timerList = &s.periodic
	s.lastInsert = &s.periodic
	// Tasks run once before the first sleep
	s.tasksStatus.Store(taskRequested)
	return s
}

// ReadTime returns the current hardware tick
func (s *Scheduler) ReadTime() uint32 {
	return s.timer.ReadTime()
}

// periodicEvent keeps the list non-empty and the sentinel far ahead
func (s *Scheduler) periodicEvent(t *Timer) uint8 {
	s.WakeTasks()
	s.periodic.WakeTime += s.periodicTicks
	s.sentinel.WakeTime = s.periodic.WakeTime + 0x80000000
	return SF_RESCHEDULE
}

func (s *Scheduler) sentinelEvent(t *Timer) uint8 {
	s.Shutdown(ReasonSentinelCalled)
	return SF_DONE
}

func deletedEvent(t *Timer) uint8 {
	return SF_DONE
}

// insertTimer links t after pos at the first node that wakes strictly
// after waketime, so equal wake times keep insertion order. The walk never
// goes past the sentinel.
func (s *Scheduler) insertTimer(pos, t *Timer, waketime uint32) {
	var prev *Timer
	for {
		prev = pos
		pos = pos.Next
		// The sentinel check only guards against linking past the end
		if pos == &s.sentinel || TimerIsBefore(waketime, pos.WakeTime) {
			break
		}
	}
	t.Next = pos
	prev.Next = t
}

// AddTimer schedules t to run at t.WakeTime. Safe from any context.
//
// A timer due before the current head becomes the head through the deleted
// timer slot. If such a timer is already in the past relative to the
// hardware clock the machine shuts down with "Timer too close". Timers
// added while shut down are not linked.
func (s *Scheduler) AddTimer(t *Timer) {
	waketime := t.WakeTime
	flag := s.irq.Save()
	if s.shutdownStatus != StateNotShutdown {
		s.irq.Restore(flag)
		DebugPrintln("[sched] timer dropped while shut down")
		return
	}
	tl := s.timerList
	if TimerIsBefore(waketime, tl.WakeTime) {
		now := s.timer.ReadTime()
		if TimerIsBefore(waketime, now) {
			RecordTiming(EvtTimerPast, 0, waketime, now, tl.WakeTime)
			s.RequestShutdown(ReasonTimerTooClose)
		}
		if tl == &s.deleted {
			t.Next = s.deleted.Next
		} else {
			t.Next = tl
		}
		s.deleted.WakeTime = waketime
		s.deleted.Next = t
		s.timerList = &s.deleted
		s.kick()
	} else {
		s.insertTimer(tl, t, waketime)
	}
	RecordTiming(EvtTimerSchedule, 0, waketime, 0, 0)
	s.irq.Restore(flag)
}

// DelTimer unlinks t. It is a no-op if t is not scheduled. When it
// returns t is guaranteed not to fire.
func (s *Scheduler) DelTimer(del *Timer) {
	flag := s.irq.Save()
	if s.timerList == del {
		// Replace the next active timer with the placeholder
		s.deleted.WakeTime = del.WakeTime
		s.deleted.Next = del.Next
		s.timerList = &s.deleted
	} else {
		for pos := s.timerList; pos.Next != nil; pos = pos.Next {
			if pos.Next == del {
				pos.Next = del.Next
				break
			}
		}
	}
	if s.lastInsert == del {
		s.lastInsert = &s.periodic
	}
	s.irq.Restore(flag)
}

// Dispatch runs the head timer and relinks the list. It is called from the
// timer interrupt and returns the next wake time to arm the hardware for.
//
// A rescheduled timer is reinserted starting from the last insertion point
// when that point is not after its new wake time, which avoids walking the
// whole list for timers that reschedule at a steady rate.
func (s *Scheduler) Dispatch() uint32 {
	t := s.timerList
	res := t.Handler(t)
	updated := t.WakeTime
	RecordTiming(EvtTimerFire, 0, updated, uint32(res), 0)

	next := updated
	if res == SF_DONE {
		next = t.Next.WakeTime
		s.timerList = t.Next
		if s.lastInsert == t {
			s.lastInsert = t.Next
		}
	} else if !TimerIsBefore(updated, t.Next.WakeTime) {
		next = t.Next.WakeTime
		s.timerList = t.Next
		pos := s.lastInsert
		if TimerIsBefore(updated, pos.WakeTime) {
			pos = s.timerList
		}
		s.insertTimer(pos, t, updated)
		s.lastInsert = t
	}
	return next
}

// timerReset drops every timer except the periodic one
func (s *Scheduler) timerReset() {
	s.timerList = &s.deleted
	s.deleted.WakeTime = s.periodic.WakeTime
	s.deleted.Next = &s.periodic
	s.lastInsert = &s.periodic
	s.periodic.Next = &s.sentinel
	s.kick()
}

// kick arms the hardware so a new list head is dispatched promptly
func (s *Scheduler) kick() {
	s.timer.SetAlarm(s.timer.ReadTime() + TimerKickTicks)
}

// NextWakeTime returns the wake time of the current list head
func (s *Scheduler) NextWakeTime() uint32 {
	return s.timerList.WakeTime
}

// IsScheduled reports whether t is linked into the timer list
func (s *Scheduler) IsScheduled(t *Timer) bool {
	flag := s.irq.Save()
	defer s.irq.Restore(flag)
	for pos := s.timerList; pos != nil; pos = pos.Next {
		if pos == t {
			return true
		}
	}
	return false
}

// PendingTimers returns the number of linked timers excluding the periodic,
// sentinel and deleted placeholders.
func (s *Scheduler) PendingTimers() int {
	flag := s.irq.Save()
	defer s.irq.Restore(flag)
	n := 0
	for pos := s.timerList; pos != nil; pos = pos.Next {
		if pos != &s.periodic && pos != &s.sentinel && pos != &s.deleted {
			n++
		}
	}
	return n
}
