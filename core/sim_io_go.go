//go:build !tinygo

package core

import "errors"

var (
	ErrPinOutput       = errors.New("pin configured as output")
	ErrWatchdogTimeout = errors.New("watchdog timeout out of range")
)

// PinEdge is one recorded output change
type PinEdge struct {
	Pin   GPIOPin
	Value bool
	Clock uint32
}

type simPin struct {
	output bool
	pullUp bool
	value  bool
}

func (m *SimMachine) pin(p GPIOPin) *simPin {
	sp, ok := m.pins[p]
	if !ok {
		sp = &simPin{}
		m.pins[p] = sp
	}
	return sp
}

// ConfigureOutput makes p an output at value
func (m *SimMachine) ConfigureOutput(p GPIOPin, value bool) error {
	sp := m.pin(p)
	sp.output = true
	sp.value = value
	return nil
}

// ConfigureInput makes p an input. A pulled-up input with no external
// level reads high.
func (m *SimMachine) ConfigureInput(p GPIOPin, pullUp bool) error {
	sp := m.pin(p)
	if sp.output {
		return ErrPinOutput
	}
	sp.pullUp = pullUp
	if pullUp {
		sp.value = true
	}
	return nil
}

// ReleasePin forgets how p was configured
func (m *SimMachine) ReleasePin(p GPIOPin) {
	delete(m.pins, p)
}

// SetPin drives an output and records the edge
func (m *SimMachine) SetPin(p GPIOPin, value bool) {
	sp := m.pin(p)
	if sp.value != value {
		m.edges = append(m.edges, PinEdge{Pin: p, Value: value, Clock: m.now})
	}
	sp.value = value
}

// Edges returns the recorded output changes, oldest first
func (m *SimMachine) Edges() []PinEdge {
	out := make([]PinEdge, len(m.edges))
	copy(out, m.edges)
	return out
}

// ReadPin samples a pin
func (m *SimMachine) ReadPin(p GPIOPin) bool {
	return m.pin(p).value
}

// SetInput sets the external level seen on an input pin
func (m *SimMachine) SetInput(p GPIOPin, value bool) {
	m.pin(p).value = value
}

type simWatchdog struct {
	timeout  uint32 // ticks, 0 while unconfigured
	lastFeed uint32
	feeds    uint32
}

// Configure arms the simulated watchdog
func (m *SimMachine) Configure(timeoutMS uint32) error {
	if timeoutMS == 0 || timeoutMS > 8000 {
		return ErrWatchdogTimeout
	}
	m.watchdog.timeout = TimerFromUS(timeoutMS * 1000)
	m.watchdog.lastFeed = m.now
	return nil
}

// Feed restarts the watchdog countdown
func (m *SimMachine) Feed() {
	m.watchdog.lastFeed = m.now
	m.watchdog.feeds++
}

// WatchdogFeeds returns how often the watchdog has been fed
func (m *SimMachine) WatchdogFeeds() uint32 {
	return m.watchdog.feeds
}

// WatchdogExpired reports whether the watchdog would have reset the chip
func (m *SimMachine) WatchdogExpired() bool {
	wd := &m.watchdog
	return wd.timeout != 0 && m.now-wd.lastFeed > wd.timeout
}
