// GPIO (General Purpose Input/Output) support
// Implements the digital_out protocol for timed GPIO output pins
package core

import (
	"errors"

	"tickcore/protocol"
)

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // Current pin state (1=high, 0=low)
	DF_TOGGLING   = 1 << 1 // PWM mode active
	DF_CHECK_END  = 1 << 2 // Monitor max_duration
	DF_DEFAULT_ON = 1 << 3 // Default state for shutdown
)

var (
	ReasonMissedDigitalOut = StaticString("Missed scheduling of next digital out event")

	ErrUnknownOID = errors.New("object id not configured")
)

// DigitalOut represents a configured GPIO output pin
type DigitalOut struct {
	OID   uint8   // Object ID
	Pin   GPIOPin // Hardware pin
	Flags uint8   // State flags (DF_*)

	Timer Timer // scheduled updates, PWM toggles and the max_duration check

	// PWM timing
	OnDuration  uint32 // PWM on time in ticks
	OffDuration uint32 // PWM off time in ticks
	CycleTime   uint32 // Total PWM cycle time in ticks
	EndTime     uint32 // Time when max_duration expires

	// Maximum time the pin may stay away from its default state
	MaxDuration uint32

	outs *DigitalOutputs
}

// DigitalOutputs owns the configured output pins of one scheduler
type DigitalOutputs struct {
	s    *Scheduler
	gpio GPIODriver
	outs map[uint8]*DigitalOut
}

// RegisterDigitalOutCommands registers the digital_out commands and the
// shutdown hook that returns every pin to its default level
func RegisterDigitalOutCommands(s *Scheduler, reg *CommandRegistry, gpio GPIODriver) *DigitalOutputs {
	d := &DigitalOutputs{
		s:    s,
		gpio: gpio,
		outs: make(map[uint8]*DigitalOut),
	}
	reg.Register("config_digital_out", "oid=%c pin=%u value=%c default_value=%c max_duration=%u", d.handleConfigDigitalOut)
	reg.Register("queue_digital_out", "oid=%c clock=%u on_ticks=%u", d.handleQueueDigitalOut)
	reg.Register("update_digital_out", "oid=%c value=%c", d.handleUpdateDigitalOut)
	reg.Register("set_digital_out_pwm_cycle", "oid=%c cycle_ticks=%u", d.handleSetDigitalOutPWMCycle)
	s.DeclareShutdown(d.shutdown)
	return d
}

// Get returns the output configured under oid
func (d *DigitalOutputs) Get(oid uint8) (*DigitalOut, bool) {
	dout, ok := d.outs[oid]
	return dout, ok
}

func decodeArgs(data *[]byte, args ...*uint32) error {
	for _, a := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*a = v
	}
	return nil
}

// handleConfigDigitalOut configures a pin for digital output
// Format: config_digital_out oid=%c pin=%u value=%c default_value=%c max_duration=%u
func (d *DigitalOutputs) handleConfigDigitalOut(data *[]byte) error {
	var oid, pin, value, defaultValue, maxDuration uint32
	if err := decodeArgs(data, &oid, &pin, &value, &defaultValue, &maxDuration); err != nil {
		return err
	}

	dout := &DigitalOut{
		OID:         uint8(oid),
		Pin:         GPIOPin(pin),
		MaxDuration: maxDuration,
		outs:        d,
	}
	if defaultValue != 0 {
		dout.Flags |= DF_DEFAULT_ON
	}
	if value != 0 {
		dout.Flags |= DF_ON
	}
	if err := d.gpio.ConfigureOutput(dout.Pin, value != 0); err != nil {
		return err
	}
	dout.Timer.Handler = dout.loadEvent
	d.outs[dout.OID] = dout
	return nil
}

// handleQueueDigitalOut schedules a pin state change
// Format: queue_digital_out oid=%c clock=%u on_ticks=%u
func (d *DigitalOutputs) handleQueueDigitalOut(data *[]byte) error {
	var oid, clock, onTicks uint32
	if err := decodeArgs(data, &oid, &clock, &onTicks); err != nil {
		return err
	}
	dout, ok := d.outs[uint8(oid)]
	if !ok {
		return ErrUnknownOID
	}

	// The timer may already be pending; unlink it before touching state
	// its callbacks read
	d.s.DelTimer(&dout.Timer)

	flags := dout.Flags &^ (DF_ON | DF_TOGGLING | DF_CHECK_END)
	if dout.CycleTime != 0 && onTicks > 0 && onTicks < dout.CycleTime {
		dout.OnDuration = onTicks
		dout.OffDuration = dout.CycleTime - onTicks
		flags |= DF_TOGGLING | DF_ON
	} else if onTicks > 0 {
		flags |= DF_ON
	}

	// A pin leaving its default level must be revisited in time
	if dout.MaxDuration != 0 && (flags&DF_ON != 0) != (flags&DF_DEFAULT_ON != 0) {
		dout.EndTime = clock + dout.MaxDuration
		flags |= DF_CHECK_END
	}
	dout.Flags = flags

	dout.Timer.WakeTime = clock
	dout.Timer.Handler = dout.loadEvent
	d.s.AddTimer(&dout.Timer)
	return nil
}

// handleUpdateDigitalOut immediately updates a pin value
// Format: update_digital_out oid=%c value=%c
func (d *DigitalOutputs) handleUpdateDigitalOut(data *[]byte) error {
	var oid, value uint32
	if err := decodeArgs(data, &oid, &value); err != nil {
		return err
	}
	dout, ok := d.outs[uint8(oid)]
	if !ok {
		return ErrUnknownOID
	}

	d.s.DelTimer(&dout.Timer)
	dout.Flags &^= DF_TOGGLING | DF_CHECK_END
	dout.set(value != 0)
	return nil
}

// handleSetDigitalOutPWMCycle sets the PWM cycle time
// Format: set_digital_out_pwm_cycle oid=%c cycle_ticks=%u
func (d *DigitalOutputs) handleSetDigitalOutPWMCycle(data *[]byte) error {
	var oid, cycleTicks uint32
	if err := decodeArgs(data, &oid, &cycleTicks); err != nil {
		return err
	}
	dout, ok := d.outs[uint8(oid)]
	if !ok {
		return ErrUnknownOID
	}
	dout.CycleTime = cycleTicks
	return nil
}

func (dout *DigitalOut) set(on bool) {
	if on {
		dout.Flags |= DF_ON
	} else {
		dout.Flags &^= DF_ON
	}
	dout.outs.gpio.SetPin(dout.Pin, on)
	RecordTiming(EvtOutputEdge, dout.OID, dout.Timer.WakeTime, b2u(on), 0)
}

// loadEvent applies a queued update at its scheduled clock
func (dout *DigitalOut) loadEvent(t *Timer) uint8 {
	if dout.Flags&DF_TOGGLING != 0 {
		dout.set(true)
		t.WakeTime += dout.OnDuration
		t.Handler = dout.toggleEvent
		return SF_RESCHEDULE
	}

	dout.set(dout.Flags&DF_ON != 0)
	if dout.Flags&DF_CHECK_END != 0 {
		t.WakeTime = dout.EndTime
		t.Handler = dout.endEvent
		return SF_RESCHEDULE
	}
	return SF_DONE
}

// toggleEvent alternates the pin for software PWM
func (dout *DigitalOut) toggleEvent(t *Timer) uint8 {
	on := dout.Flags&DF_ON == 0
	dout.set(on)

	next := dout.OffDuration
	if on {
		next = dout.OnDuration
	}
	waketime := t.WakeTime + next
	if dout.Flags&DF_CHECK_END != 0 && !TimerIsBefore(waketime, dout.EndTime) {
		t.WakeTime = dout.EndTime
		t.Handler = dout.endEvent
		return SF_RESCHEDULE
	}
	t.WakeTime = waketime
	return SF_RESCHEDULE
}

// endEvent fires when the host failed to queue a follow-up update
// before max_duration expired
func (dout *DigitalOut) endEvent(t *Timer) uint8 {
	dout.outs.s.Shutdown(ReasonMissedDigitalOut)
	return SF_DONE
}

// shutdown returns every output to its default level
func (d *DigitalOutputs) shutdown(s *Scheduler) {
	for _, dout := range d.outs {
		dout.Flags &^= DF_TOGGLING | DF_CHECK_END
		dout.set(dout.Flags&DF_DEFAULT_ON != 0)
		dout.Timer.Handler = dout.loadEvent
	}
}

// reset forgets every output and releases its pin. The timers were already
// dropped with the rest of the list.
func (d *DigitalOutputs) reset() {
	for oid, dout := range d.outs {
		d.gpio.ReleasePin(dout.Pin)
		delete(d.outs, oid)
	}
}
