// Package pattern generates test patterns for running the matrix without an
// Art-Net sender.
package pattern

import (
	"fmt"
)

// Pattern draws one frame of RGB bytes (width*height*3, row-major) per step.
// Patterns may rely on the previous frame still being in buf.
type Pattern interface {
	Name() string
	Draw(buf []byte, width, height int)
}

// New returns the pattern with the given name.
func New(name string) (Pattern, error) {
	switch name {
	case "dot":
		return &Dot{}, nil
	case "breathe":
		return NewBreathe(120, CurveInOutSine), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
}

// Dot moves one white dot per row one column each frame, clearing the
// previous position. The dot wraps before reaching the last column, so the
// last column stays dark.
type Dot struct {
	idx  int
	last int
}

// Name implements Pattern.
func (d *Dot) Name() string { return "dot" }

// Draw implements Pattern.
func (d *Dot) Draw(buf []byte, width, height int) {
	for y := 0; y < height; y++ {
		setPixel(buf, (y*width+d.last)*3, 0, 0, 0)
		setPixel(buf, (y*width+d.idx)*3, 0xff, 0xff, 0xff)
	}
	d.last = d.idx
	d.idx++
	if d.idx >= width-1 {
		d.idx = 0
	}
}

// palette is the row color cycle used by Breathe, as 0xRRGGBB.
var palette = []uint32{
	0xff0000, // red
	0xff8000, // orange
	0xffff00, // yellow
	0x00ff00, // green
	0x00ffff, // light blue
	0x0000ff, // blue
	0x800080, // purple
	0xff0080, // pink
}

// Breathe pulses the whole matrix up and down. Each row takes a color from
// the palette; the colors advance one row per full breath.
type Breathe struct {
	period int
	curve  Curve
	step   int
}

// NewBreathe creates a breathe pattern lasting period frames per breath.
func NewBreathe(period int, curve Curve) *Breathe {
	if period < 2 {
		period = 2
	}
	return &Breathe{period: period, curve: curve}
}

// Name implements Pattern.
func (b *Breathe) Name() string { return "breathe" }

// Draw implements Pattern.
func (b *Breathe) Draw(buf []byte, width, height int) {
	half := float64(b.period) / 2
	phase := float64(b.step%b.period) / half
	if phase > 1 {
		phase = 2 - phase
	}
	level := uint32(Level(phase, b.curve))
	shift := b.step / b.period

	for y := 0; y < height; y++ {
		c := palette[(y+shift)%len(palette)]
		r := byte((c >> 16 & 0xff) * level / 255)
		g := byte((c >> 8 & 0xff) * level / 255)
		bl := byte((c & 0xff) * level / 255)
		for x := 0; x < width; x++ {
			setPixel(buf, (y*width+x)*3, r, g, bl)
		}
	}
	b.step++
}

func setPixel(buf []byte, off int, r, g, b byte) {
	buf[off] = r
	buf[off+1] = g
	buf[off+2] = b
}
