//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tickcore/core"
)

const numPins = 30

var errBadPin = errors.New("gpio: no such pin")

// rpGPIO drives the RP2040 bank 0 pins through the machine package
type rpGPIO struct{}

func (rpGPIO) ConfigureOutput(pin core.GPIOPin, value bool) error {
	if pin >= numPins {
		return errBadPin
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(value)
	return nil
}

func (rpGPIO) ConfigureInput(pin core.GPIOPin, pullUp bool) error {
	if pin >= numPins {
		return errBadPin
	}
	mode := machine.PinInput
	if pullUp {
		mode = machine.PinInputPullup
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (rpGPIO) ReleasePin(pin core.GPIOPin) {
	if pin < numPins {
		machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInput})
	}
}

func (rpGPIO) SetPin(pin core.GPIOPin, value bool) {
	machine.Pin(pin).Set(value)
}

func (rpGPIO) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}

// rpWatchdog adapts machine.Watchdog
type rpWatchdog struct{}

func (rpWatchdog) Configure(timeoutMS uint32) error {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMS}); err != nil {
		return err
	}
	return machine.Watchdog.Start()
}

func (rpWatchdog) Feed() {
	machine.Watchdog.Update()
}

// reboot resets the chip through the watchdog, which also re-enumerates USB
func reboot() {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	machine.Watchdog.Start()
	for {
	}
}
