package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func litColumns(buf []byte, width, row int) []int {
	var cols []int
	for x := 0; x < width; x++ {
		off := (row*width + x) * 3
		if buf[off] != 0 || buf[off+1] != 0 || buf[off+2] != 0 {
			cols = append(cols, x)
		}
	}
	return cols
}

func TestDot_MovesAndClears(t *testing.T) {
	const width, height = 4, 3
	buf := make([]byte, width*height*3)
	d := &Dot{}

	for frame := 0; frame < 10; frame++ {
		d.Draw(buf, width, height)
		want := frame % (width - 1)
		for y := 0; y < height; y++ {
			assert.Equal(t, []int{want}, litColumns(buf, width, y), "frame %d row %d", frame, y)
		}
	}
}

func TestDot_LastColumnStaysDark(t *testing.T) {
	const width = 3
	buf := make([]byte, width*3)
	d := &Dot{}

	for frame := 0; frame < 2*width; frame++ {
		d.Draw(buf, width, 1)
		assert.NotContains(t, litColumns(buf, width, 0), width-1, "frame %d", frame)
	}
}

func TestDot_SingleColumn(t *testing.T) {
	buf := make([]byte, 3)
	d := &Dot{}
	d.Draw(buf, 1, 1)
	d.Draw(buf, 1, 1)
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, buf)
}

func TestDot_White(t *testing.T) {
	buf := make([]byte, 2*1*3)
	(&Dot{}).Draw(buf, 2, 1)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0, 0, 0}, buf)
}

func TestBreathe_RampsUpAndDown(t *testing.T) {
	const width, height = 2, 1
	b := NewBreathe(10, CurveLinear)
	buf := make([]byte, width*height*3)

	var reds []byte
	for i := 0; i < 10; i++ {
		b.Draw(buf, width, height)
		reds = append(reds, buf[0])
	}

	assert.Equal(t, byte(0), reds[0], "breath starts dark")
	assert.Equal(t, byte(255), reds[5], "breath peaks half way")
	assert.Greater(t, reds[3], reds[1])
	assert.Less(t, reds[8], reds[6])
	assert.Equal(t, buf[0], buf[3], "all pixels in a row share a level")
}

func TestBreathe_RowsCycleColors(t *testing.T) {
	b := NewBreathe(2, CurveLinear)
	buf := make([]byte, 1*2*3)

	b.Draw(buf, 1, 2) // step 0, level 0
	b.Draw(buf, 1, 2) // step 1, level 255
	assert.Equal(t, []byte{0xff, 0, 0}, buf[0:3], "row 0 is red")
	assert.Equal(t, []byte{0xff, 0x80, 0}, buf[3:6], "row 1 is orange")

	b.Draw(buf, 1, 2) // step 2 starts the second breath, shifted palette
	b.Draw(buf, 1, 2)
	assert.Equal(t, []byte{0xff, 0x80, 0}, buf[0:3], "row 0 moved to orange")
}

func TestNew(t *testing.T) {
	p, err := New("dot")
	require.NoError(t, err)
	assert.Equal(t, "dot", p.Name())

	p, err = New("breathe")
	require.NoError(t, err)
	assert.Equal(t, "breathe", p.Name())

	_, err = New("plasma")
	assert.Error(t, err)
}
