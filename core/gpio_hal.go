package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
// SetPin and ReadPin are called from timer callbacks and must not block.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output at the given level
	ConfigureOutput(pin GPIOPin, value bool) error

	// ConfigureInput configures a pin as a digital input, optionally pulled up
	ConfigureInput(pin GPIOPin, pullUp bool) error

	// ReleasePin returns a pin to its power-on state, an input without pull
	ReleasePin(pin GPIOPin)

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool)

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}
