package driver

import (
	"fmt"
	"io"
	"log"

	"go.bug.st/serial"

	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
)

// Adalight drives a strip through a microcontroller speaking the Adalight
// serial protocol: "Ada", LED count-1 (big endian), checksum, then pixel
// bytes in the strip's channel order.
type Adalight struct {
	port       io.WriteCloser
	order      pixel.ChannelOrder
	brightness int
	buffer     []uint32
	frame      []byte
	closed     bool
}

// OpenAdalight opens the serial port and returns an Adalight driver. The
// protocol carries three bytes per LED, so orders with a white channel are
// rejected.
func OpenAdalight(cfg Config) (*Adalight, error) {
	if cfg.ChannelOrder.HasWhite() {
		return nil, fmt.Errorf("%w: adalight carries 3 channels, got %s", ErrUnsupportedOrder, cfg.ChannelOrder)
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.SerialPort, mode)
	if err != nil {
		return nil, fmt.Errorf("driver: failed to open serial port %s: %w", cfg.SerialPort, err)
	}

	log.Printf("💡 Adalight driver on %s @ %d baud, %d LEDs, order %s", cfg.SerialPort, cfg.BaudRate, cfg.LEDCount, cfg.ChannelOrder)
	return NewAdalight(port, cfg), nil
}

// NewAdalight wraps an already open port.
func NewAdalight(port io.WriteCloser, cfg Config) *Adalight {
	order := cfg.ChannelOrder
	if order.Channels() != 3 {
		order, _ = pixel.ParseChannelOrder("rgb")
	}

	frame := make([]byte, 6+cfg.LEDCount*order.Channels())
	count := cfg.LEDCount - 1
	hi, lo := byte(count>>8), byte(count)
	copy(frame, []byte{'A', 'd', 'a', hi, lo, hi ^ lo ^ 0x55})

	return &Adalight{
		port:       port,
		order:      order,
		brightness: cfg.Brightness,
		buffer:     make([]uint32, cfg.LEDCount),
		frame:      frame,
	}
}

// Buffer implements Driver.
func (a *Adalight) Buffer() []uint32 {
	return a.buffer
}

// Render implements Driver.
func (a *Adalight) Render() error {
	if a.closed {
		return ErrClosed
	}

	off := 6
	for _, v := range a.buffer {
		n := a.order.Wire(a.frame[off:], v)
		for i := off; i < off+n; i++ {
			a.frame[i] = scale(a.frame[i], a.brightness)
		}
		off += n
	}

	if _, err := a.port.Write(a.frame); err != nil {
		return fmt.Errorf("driver: adalight write failed: %w", err)
	}
	return nil
}

// Shutdown implements Driver.
func (a *Adalight) Shutdown() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.port.Close()
}
