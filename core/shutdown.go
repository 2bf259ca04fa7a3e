package core

// ShutdownState is the fault controller's mode
type ShutdownState uint8

const (
	StateNotShutdown ShutdownState = iota
	StateShutdown
	StateCleaningUp
)

func (st ShutdownState) String() string {
	switch st {
	case StateNotShutdown:
		return "not_shutdown"
	case StateShutdown:
		return "shutdown"
	case StateCleaningUp:
		return "cleaning_up"
	}
	return "unknown"
}

// shutdownSignal is the panic value that carries a fault to the recovery
// point at the top of the run loop.
type shutdownSignal struct {
	reason ReasonCode
}

// Shutdown forces the machine into shutdown and does not return to the
// caller: control resumes at the run loop's recovery point. Inside a
// cleanup callback it is a no-op so the remaining callbacks still run.
func (s *Scheduler) Shutdown(reason ReasonCode) {
	if s.shutdownStatus == StateCleaningUp {
		return
	}
	s.irq.Disable()
	RecordTiming(EvtShutdown, 0, 0, uint32(reason), uint32(s.shutdownStatus))
	panic(shutdownSignal{reason: reason})
}

// RequestShutdown shuts the machine down unless it is already shut down
// or cleaning up, in which case the call is ignored and the first reason
// stands.
func (s *Scheduler) RequestShutdown(reason ReasonCode) {
	if s.shutdownStatus == StateNotShutdown {
		s.Shutdown(reason)
	}
}

// IsShutdown reports whether a fault has been taken and not yet cleared
func (s *Scheduler) IsShutdown() bool {
	return s.shutdownStatus != StateNotShutdown
}

// ShutdownStatus returns the current mode and the recorded reason
func (s *Scheduler) ShutdownStatus() (ShutdownState, ReasonCode) {
	return s.shutdownStatus, s.shutdownReason
}

// ClearShutdown leaves shutdown so timers may be scheduled again. Clearing
// while not shut down is itself a fault; clearing during cleanup is ignored.
func (s *Scheduler) ClearShutdown() {
	if s.shutdownStatus == StateNotShutdown {
		s.Shutdown(ReasonClearNotShutdown)
	}
	if s.shutdownStatus == StateCleaningUp {
		return
	}
	s.shutdownStatus = StateNotShutdown
	DebugPrintln("[sched] shutdown cleared")
}

// ReportShutdown tells the host the machine is shut down and why
func (s *Scheduler) ReportShutdown() {
	s.out.Send("is_shutdown", uint32(s.shutdownReason))
}

// runShutdown is the recovery point's handler. It discards every timer,
// puts each peripheral in its safe state and reports the first fault of
// the episode once.
func (s *Scheduler) runShutdown(reason ReasonCode) {
	s.irq.Disable()
	cur := s.timer.ReadTime()
	first := s.shutdownStatus == StateNotShutdown
	if first {
		s.shutdownReason = reason
	}
	s.shutdownStatus = StateCleaningUp
	s.pendingShutdown = false
	s.timerReset()
	s.decl.runShutdownFuncs(s)
	s.shutdownStatus = StateShutdown
	s.irq.Enable()

	if !first {
		return
	}
	s.out.Send("shutdown", cur, uint32(s.shutdownReason))
	DebugPrintln("[sched] shutdown: " + ReasonString(s.shutdownReason) +
		" clock=" + utoa(cur))
	DumpTimingRing()
}

// recoverShutdown runs the shutdown handler for a fault raised below it.
// Panics other than a shutdown signal are not ours and keep unwinding.
func (s *Scheduler) recoverShutdown() {
	r := recover()
	if r == nil {
		return
	}
	sig, ok := r.(shutdownSignal)
	if !ok {
		panic(r)
	}
	s.runShutdown(sig.reason)
}

// Guard runs fn with the run loop's fault recovery point established. Entry
// points that are not called from the run loop (host commands in tests,
// init callbacks) use it.
func (s *Scheduler) Guard(fn func()) {
	defer s.recoverShutdown()
	fn()
}

// InterruptGuard runs an interrupt handler. A fault raised inside it cannot
// unwind the interrupted main loop, so it is parked and handled at the top
// of the next loop iteration; the handler reports whether that happened.
func (s *Scheduler) InterruptGuard(fn func()) (faulted bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(shutdownSignal)
		if !ok {
			panic(r)
		}
		if !s.pendingShutdown {
			s.pendingShutdown = true
			s.pendingReason = sig.reason
		}
		s.WakeTasks()
		faulted = true
	}()
	fn()
	return false
}

// checkPendingShutdown turns a fault parked by an interrupt into a shutdown
func (s *Scheduler) checkPendingShutdown() {
	if s.pendingShutdown {
		s.pendingShutdown = false
		s.Shutdown(s.pendingReason)
	}
}
