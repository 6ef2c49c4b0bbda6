// Package driver provides the LED output sinks the frame loop renders into.
package driver

import (
	"errors"
	"fmt"

	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
)

// ErrClosed is returned by Render after Shutdown.
var ErrClosed = errors.New("driver is shut down")

// ErrUnsupportedOrder is returned when a driver cannot carry the channel order.
var ErrUnsupportedOrder = errors.New("driver: unsupported channel order")

// Driver is an LED output. The driver owns its render target; callers write
// packed pixels into Buffer and then call Render. Clearing is rendering an
// all-zero buffer.
type Driver interface {
	// Buffer returns the render target, width*height packed pixels.
	Buffer() []uint32
	// Render pushes the current buffer to the LEDs.
	Render() error
	// Shutdown releases the hardware. Render must not be called afterwards.
	Shutdown() error
}

// Kinds of driver.
const (
	KindMemory   = "memory"
	KindAdalight = "adalight"
)

// Config holds driver configuration.
type Config struct {
	Kind         string
	LEDCount     int
	ChannelOrder pixel.ChannelOrder
	Brightness   int // 0-255

	// Serial drivers
	SerialPort string
	BaudRate   int
}

// Open initializes the configured driver.
func Open(cfg Config) (Driver, error) {
	if cfg.LEDCount <= 0 {
		return nil, fmt.Errorf("driver: invalid LED count %d", cfg.LEDCount)
	}

	switch cfg.Kind {
	case KindMemory, "":
		return NewMemory(cfg.LEDCount), nil
	case KindAdalight:
		return OpenAdalight(cfg)
	default:
		return nil, fmt.Errorf("driver: unknown kind %q", cfg.Kind)
	}
}

// scale applies brightness to one channel value, ws2811 style.
func scale(v byte, brightness int) byte {
	return byte((int(v) * (brightness + 1)) >> 8)
}
