//go:build rp2040

package main

import (
	"machine"

	"tickcore/core"
)

// usbPollTicks is how often the poll timer looks for received bytes
const usbPollTicks = 1000

// usbLink moves bytes between USB CDC and the firmware. A timer notices
// received data and wakes the task; the task also polls on every cycle so
// input is still read while shut down, when no timers run.
type usbLink struct {
	f       *core.Firmware
	wake    core.TaskWake
	poll    core.Timer
	rx      [64]byte
	txFails uint32
}

func newUSBLink(f *core.Firmware) *usbLink {
	u := &usbLink{f: f}
	u.poll.Handler = u.pollEvent
	machine.Serial.Configure(machine.UARTConfig{})
	f.SetTx(u.write)
	f.Sched.DeclareTask(u.task)
	return u
}

func (u *usbLink) pollEvent(t *core.Timer) uint8 {
	if machine.Serial.Buffered() > 0 {
		u.f.Sched.WakeTask(&u.wake)
	}
	t.WakeTime += usbPollTicks
	return core.SF_RESCHEDULE
}

func (u *usbLink) task(s *core.Scheduler) {
	if !s.IsShutdown() && !s.IsScheduled(&u.poll) {
		u.poll.WakeTime = s.ReadTime() + usbPollTicks
		s.AddTimer(&u.poll)
	}
	s.CheckWake(&u.wake)
	n := 0
	for n < len(u.rx) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		u.rx[n] = b
		n++
	}
	if n > 0 {
		u.f.Receive(u.rx[:n])
	}
}

// write sends a whole frame, giving up on a stalled host
func (u *usbLink) write(p []byte) error {
	for len(p) > 0 {
		n, err := machine.Serial.Write(p)
		if err != nil {
			u.txFails++
			return err
		}
		if n == 0 {
			u.txFails++
			return errUSBStalled
		}
		p = p[n:]
	}
	return nil
}
