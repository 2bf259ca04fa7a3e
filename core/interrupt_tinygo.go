//go:build tinygo && cortexm

package core

import (
	"device/arm"
	"runtime/interrupt"
)

// CortexM is the IRQController for single-core Cortex-M parts
type CortexM struct{}

// Save disables interrupts and returns the previous state
func (CortexM) Save() IRQState {
	return IRQState(interrupt.Disable())
}

// Restore restores the interrupt state
func (CortexM) Restore(state IRQState) {
	interrupt.Restore(interrupt.State(state))
}

func (CortexM) Disable() {
	arm.Asm("cpsid i")
}

func (CortexM) Enable() {
	arm.Asm("cpsie i")
}

// Poll is a no-op: interrupts are taken by the hardware
func (CortexM) Poll() {}

// Wait enables interrupts and sleeps until the next one. A pending
// interrupt is taken right after cpsie; the run loop rechecks its wake
// flag after every Wait.
func (CortexM) Wait() {
	arm.Asm("cpsie i\n wfi\n cpsid i")
}
