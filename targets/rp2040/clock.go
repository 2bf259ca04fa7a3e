//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"tickcore/core"
)

// RP2040 timer peripheral. The counter runs at 1MHz; alarm 1 is ours,
// the TinyGo runtime sleeps on alarm 0.
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarmBit  = 1 << 1
	clockFreq = 1000000
)

var (
	timerAlarm = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntr  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// hwTimer is the core.TimerDriver on the RP2040 microsecond timer
type hwTimer struct {
	irq func()
}

func (t *hwTimer) ReadTime() uint32 {
	return timerRAWL.Get()
}

// SetAlarm arms alarm 1. Writing the register arms it; a value already
// behind the counter fires on the next tick match, which the dispatch
// loop never asks for.
func (t *hwTimer) SetAlarm(next uint32) {
	timerAlarm.Set(next)
}

// start enables the alarm interrupt with handler as its service routine
func (t *hwTimer) start(handler func()) {
	t.irq = handler
	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) {
		timerIntr.Set(alarmBit)
		hw.timer.irq()
	})
	timerInte.SetBits(alarmBit)
	intr.Enable()
}

func initClock() {
	core.SetTimerFreq(clockFreq)
}
