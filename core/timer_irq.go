package core

// Dispatch-many windows, in microseconds
const (
	timerIdleRepeatUS  = 500
	timerRepeatUS      = 100
	timerMinTryUS      = 2
	timerDeferRepeatUS = 5
	timerPastLimitUS   = 1000
)

// DispatchMany runs every timer that is due (or due within a couple of
// microseconds) and returns the tick to arm the compare unit for.
//
// If timers keep the interrupt busy past the repeat window the main loop
// gets a chance to run when it has work; if the backlog is more than a
// millisecond late the machine shuts down.
func (s *Scheduler) DispatchMany() uint32 {
	tru := s.repeatUntil
	for {
		next := s.Dispatch()
		now := s.timer.ReadTime()
		diff := int32(next - now)
		if diff > int32(TimerFromUS(timerMinTryUS)) {
			// Next timer is far enough out to leave the handler
			s.repeatUntil = now + TimerFromUS(timerRepeatUS)
			return next
		}

		if TimerIsBefore(tru, now) {
			// Handler has been running for a while
			if diff < -int32(TimerFromUS(timerPastLimitUS)) {
				s.RequestShutdown(ReasonRescheduledInPast)
			}
			if s.TasksBusy() {
				s.repeatUntil = now + TimerFromUS(timerRepeatUS)
				return now + TimerFromUS(timerDeferRepeatUS)
			}
			tru = now + TimerFromUS(timerIdleRepeatUS)
			s.repeatUntil = tru
		}

		// Next timer is due in a moment: wait for it here
		for diff > 0 {
			diff = int32(next - s.timer.ReadTime())
		}
	}
}

// TimerIRQ is the hardware compare interrupt handler. A fault raised by a
// timer callback leaves the compare unit disarmed until the main loop has
// run the shutdown handler, which re-arms it.
func (s *Scheduler) TimerIRQ() {
	s.irq.Disable()
	var next uint32
	if !s.InterruptGuard(func() { next = s.DispatchMany() }) {
		s.timer.SetAlarm(next)
	}
	s.irq.Enable()
}
