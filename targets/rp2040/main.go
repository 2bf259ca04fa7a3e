//go:build rp2040

// Command rp2040 is the firmware image for RP2040 boards. The host talks to
// it over USB CDC.
package main

import (
	"errors"

	"tickcore/core"
)

var errUSBStalled = errors.New("usb: write made no progress")

// hw is the board's hardware; the timer interrupt reaches it directly
var hw struct {
	timer hwTimer
	irq   core.CortexM
}

func main() {
	initClock()

	f := core.NewFirmware(core.Hardware{
		Timer:    &hw.timer,
		IRQ:      hw.irq,
		GPIO:     rpGPIO{},
		Watchdog: rpWatchdog{},
	})
	f.Dict.AddConstant("MCU", "rp2040")
	f.Dict.SetBuildVersions("tinygo-rp2040")
	f.Base.SetResetHandler(reboot)
	newUSBLink(f)

	hw.timer.start(f.Sched.TimerIRQ)
	f.RunForever()
}
