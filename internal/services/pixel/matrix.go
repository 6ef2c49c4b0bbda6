package pixel

import "fmt"

// Mapper reshapes a linear, row-major pixel sequence onto a width x height
// matrix. Pixel y*width+x lands at row y, column x. Wiring corrections such
// as serpentine layouts belong to the driver.
type Mapper struct {
	width  int
	height int
}

// NewMapper creates a mapper for a width x height matrix.
func NewMapper(width, height int) *Mapper {
	return &Mapper{width: width, height: height}
}

// Width returns the matrix width.
func (m *Mapper) Width() int { return m.width }

// Height returns the matrix height.
func (m *Mapper) Height() int { return m.height }

// Len returns width*height.
func (m *Mapper) Len() int { return m.width * m.height }

// Index returns the linear index of column x, row y.
func (m *Mapper) Index(x, y int) int {
	return y*m.width + x
}

// Coord returns the column and row of linear index i.
func (m *Mapper) Coord(i int) (x, y int) {
	return i % m.width, i / m.width
}

// Map writes pixels into the render target. Both slices must hold exactly
// width*height pixels. Map does not allocate.
func (m *Mapper) Map(target, pixels []uint32) error {
	n := m.Len()
	if len(pixels) != n {
		return fmt.Errorf("pixel: map source has %d pixels, matrix has %d", len(pixels), n)
	}
	if len(target) != n {
		return fmt.Errorf("pixel: render target has %d pixels, matrix has %d", len(target), n)
	}
	for y := 0; y < m.height; y++ {
		row := y * m.width
		for x := 0; x < m.width; x++ {
			target[row+x] = pixels[row+x]
		}
	}
	return nil
}

// Clear sets every pixel to zero (all channels off).
func (m *Mapper) Clear(pixels []uint32) {
	for i := range pixels {
		pixels[i] = 0
	}
}

// Rows returns row views over pixels without copying.
func (m *Mapper) Rows(pixels []uint32) [][]uint32 {
	rows := make([][]uint32, 0, m.height)
	for y := 0; y < m.height && (y+1)*m.width <= len(pixels); y++ {
		rows = append(rows, pixels[y*m.width:(y+1)*m.width])
	}
	return rows
}
