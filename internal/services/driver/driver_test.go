package driver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
)

// mockPort records writes like a serial port would.
type mockPort struct {
	bytes.Buffer
	writeErr error
	closed   bool
}

func (p *mockPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *mockPort) Close() error {
	p.closed = true
	return nil
}

func mustOrder(t *testing.T, name string) pixel.ChannelOrder {
	t.Helper()
	order, err := pixel.ParseChannelOrder(name)
	require.NoError(t, err)
	return order
}

func TestOpen(t *testing.T) {
	d, err := Open(Config{Kind: KindMemory, LEDCount: 12})
	require.NoError(t, err)
	assert.Len(t, d.Buffer(), 12)

	_, err = Open(Config{Kind: KindMemory, LEDCount: 0})
	assert.Error(t, err)

	_, err = Open(Config{Kind: "ws2811", LEDCount: 4})
	assert.Error(t, err)
}

func TestMemory_RenderKeepsLastFrame(t *testing.T) {
	m := NewMemory(3)
	copy(m.Buffer(), []uint32{1, 2, 3})
	require.NoError(t, m.Render())

	m.Buffer()[0] = 99
	assert.Equal(t, []uint32{1, 2, 3}, m.LastFrame(), "last frame changes only on Render")
	assert.Equal(t, 1, m.RenderCount())

	require.NoError(t, m.Shutdown())
	assert.True(t, m.IsShutdown())
	assert.ErrorIs(t, m.Render(), ErrClosed)
}

func TestMemory_RenderErr(t *testing.T) {
	m := NewMemory(1)
	m.RenderErr = errors.New("dma underrun")
	assert.EqualError(t, m.Render(), "dma underrun")
	assert.Equal(t, 0, m.RenderCount())
}

func TestAdalight_Frame(t *testing.T) {
	port := &mockPort{}
	a := NewAdalight(port, Config{LEDCount: 2, ChannelOrder: mustOrder(t, "grb"), Brightness: 255})

	copy(a.Buffer(), []uint32{0x112233, 0xff0000})
	require.NoError(t, a.Render())

	want := []byte{
		'A', 'd', 'a', 0x00, 0x01, 0x00 ^ 0x01 ^ 0x55,
		0x22, 0x11, 0x33,
		0x00, 0xff, 0x00,
	}
	assert.Equal(t, want, port.Bytes())
}

func TestAdalight_Brightness(t *testing.T) {
	port := &mockPort{}
	a := NewAdalight(port, Config{LEDCount: 1, ChannelOrder: mustOrder(t, "rgb"), Brightness: 127})

	a.Buffer()[0] = 0xff8000
	require.NoError(t, a.Render())

	assert.Equal(t, []byte{127, 64, 0}, port.Bytes()[6:])
}

func TestOpenAdalight_RejectsWhiteChannel(t *testing.T) {
	for _, name := range []string{"rgbw", "grbw"} {
		t.Run(name, func(t *testing.T) {
			_, err := Open(Config{
				Kind:         KindAdalight,
				LEDCount:     4,
				ChannelOrder: mustOrder(t, name),
				SerialPort:   "/dev/does-not-exist",
				BaudRate:     115200,
			})
			assert.ErrorIs(t, err, ErrUnsupportedOrder)
		})
	}
}

func TestAdalight_ThreeBytesPerLED(t *testing.T) {
	port := &mockPort{}
	a := NewAdalight(port, Config{LEDCount: 2, ChannelOrder: mustOrder(t, "rgbw"), Brightness: 255})

	a.Buffer()[0] = 0x010203
	require.NoError(t, a.Render())
	assert.Len(t, port.Bytes(), 6+2*3, "header count matches the payload")
	assert.Equal(t, []byte{1, 2, 3}, port.Bytes()[6:9])
}

func TestAdalight_WriteErrorAndShutdown(t *testing.T) {
	port := &mockPort{writeErr: errors.New("device unplugged")}
	a := NewAdalight(port, Config{LEDCount: 1, Brightness: 255})

	assert.Error(t, a.Render())

	require.NoError(t, a.Shutdown())
	assert.True(t, port.closed)
	assert.ErrorIs(t, a.Render(), ErrClosed)
	assert.NoError(t, a.Shutdown(), "second shutdown is a no-op")
}
