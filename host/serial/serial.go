// Package serial opens the board's serial link for the host tools
package serial

import (
	"io"
	"time"
)

// Port is an open serial link. Reads return after ReadTimeout with no
// data, so a reader loop can notice cancellation.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it
	Baud int

	// ReadTimeout bounds a single Read (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultBaud is the rate Klipper-style hosts use on real UARTs
const DefaultBaud = 250000

// DefaultConfig returns the configuration used by tickhost monitor
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
