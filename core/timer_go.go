//go:build !tinygo

package core

// ReadTime returns the counter and advances it by ReadStep
func (m *SimMachine) ReadTime() uint32 {
	t := m.now
	m.now += m.ReadStep
	return t
}

// SetAlarm arms the one-shot compare interrupt
func (m *SimMachine) SetAlarm(next uint32) {
	m.alarm = next
	m.armed = true
}

// Alarm returns the armed compare value
func (m *SimMachine) Alarm() (next uint32, armed bool) {
	return m.alarm, m.armed
}

// Now returns the counter without advancing it
func (m *SimMachine) Now() uint32 {
	return m.now
}

// Advance moves the counter forward and takes due interrupts if unmasked
func (m *SimMachine) Advance(ticks uint32) {
	m.now += ticks
	if m.irqOn {
		m.deliver()
	}
}

// AttachTimerIRQ installs the compare interrupt handler
func (m *SimMachine) AttachTimerIRQ(handler func()) {
	m.timerIRQ = handler
}

func (m *SimMachine) timerDue() bool {
	return m.armed && m.timerIRQ != nil && !TimerIsBefore(m.now, m.alarm)
}
