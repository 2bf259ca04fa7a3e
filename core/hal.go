package core

// TimerDriver is the free-running hardware counter and its compare unit.
type TimerDriver interface {
	// ReadTime returns the current tick count
	ReadTime() uint32

	// SetAlarm arms the compare interrupt for an absolute tick
	SetAlarm(next uint32)
}

// IRQState is an opaque saved interrupt mask
type IRQState uintptr

// IRQController masks and unmasks interrupts on the single core.
type IRQController interface {
	// Save disables interrupts and returns the previous mask
	Save() IRQState

	// Restore reinstates a mask returned by Save
	Restore(state IRQState)

	Disable()
	Enable()

	// Poll services events on targets without real interrupts
	Poll()

	// Wait must be called with interrupts disabled. It enables them,
	// sleeps until an interrupt has been taken and disables them again.
	// An interrupt that became pending before the call wakes it at once.
	Wait()
}

// Sender delivers a message to the host. Arguments are integers in the
// order of the message format (see CommandRegistry).
type Sender interface {
	Send(name string, args ...uint32)
}

// SenderFunc adapts a function to Sender
type SenderFunc func(name string, args ...uint32)

func (f SenderFunc) Send(name string, args ...uint32) { f(name, args...) }

// Watchdog is the hardware reset timer fed by the main loop
type Watchdog interface {
	Configure(timeoutMS uint32) error
	Feed()
}
