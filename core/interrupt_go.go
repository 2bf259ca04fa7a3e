//go:build !tinygo

package core

// SimMachine is a deterministic stand-in for the MCU used on the host: a
// virtual tick counter with one compare unit, a global interrupt mask and
// a queue of pending external interrupts. Interrupts are taken only at
// points where the firmware could observe them (unmasking, Poll, Wait,
// Advance), which makes every run reproducible.
type SimMachine struct {
	now uint32

	// ReadStep is how far the counter moves on each ReadTime. It must be
	// non-zero: busy-wait loops spin on ReadTime.
	ReadStep uint32

	alarm uint32
	armed bool

	irqOn    bool
	inIRQ    bool
	timerIRQ func()
	pending  []func()

	pins     map[GPIOPin]*simPin
	edges    []PinEdge
	watchdog simWatchdog
}

// NewSimMachine creates a machine at tick start with interrupts masked
func NewSimMachine(start uint32) *SimMachine {
	return &SimMachine{
		now:      start,
		ReadStep: 1,
		pins:     make(map[GPIOPin]*simPin),
	}
}

// Save masks interrupts and returns the previous mask
func (m *SimMachine) Save() IRQState {
	prev := m.irqOn
	m.irqOn = false
	if prev {
		return 1
	}
	return 0
}

// Restore reinstates a mask; unmasking takes any interrupt that is due
func (m *SimMachine) Restore(state IRQState) {
	if state != 0 {
		m.Enable()
		return
	}
	m.irqOn = false
}

func (m *SimMachine) Disable() {
	m.irqOn = false
}

func (m *SimMachine) Enable() {
	m.irqOn = true
	m.deliver()
}

// Poll takes due interrupts when unmasked
func (m *SimMachine) Poll() {
	if m.irqOn {
		m.deliver()
	}
}

// Wait sleeps until an interrupt is taken. With nothing pending the
// counter jumps to the armed compare value. A machine with no interrupt
// source would sleep forever; that is reported as a panic.
func (m *SimMachine) Wait() {
	if len(m.pending) == 0 && !m.timerDue() {
		if !m.armed || m.timerIRQ == nil {
			panic("sim: wait with no interrupt source")
		}
		m.now = m.alarm
	}
	m.irqOn = true
	m.deliver()
	m.irqOn = false
}

// IRQEnabled reports the current mask
func (m *SimMachine) IRQEnabled() bool {
	return m.irqOn
}

// Raise queues an external interrupt handler. It runs at once if
// interrupts are unmasked.
func (m *SimMachine) Raise(handler func()) {
	m.pending = append(m.pending, handler)
	if m.irqOn {
		m.deliver()
	}
}

// deliver runs pending handlers and the timer interrupt while unmasked.
// Handlers do not nest.
func (m *SimMachine) deliver() {
	if m.inIRQ {
		return
	}
	m.inIRQ = true
	defer func() { m.inIRQ = false }()
	for m.irqOn {
		if len(m.pending) > 0 {
			fn := m.pending[0]
			m.pending = m.pending[1:]
			fn()
			continue
		}
		if m.timerDue() {
			m.armed = false
			m.timerIRQ()
			continue
		}
		return
	}
}
