// Package dmx reassembles Art-Net DMX universes into complete matrix frames.
package dmx

import "github.com/bbernstein/lacylights-matrix/internal/services/pixel"

// FrameBuffer holds one full frame of channel data. Universe u owns the
// contiguous segment [u*segment, (u+1)*segment).
type FrameBuffer struct {
	data      []byte
	segment   int
	universes int
}

// NewFrameBuffer allocates a buffer for universeCount universes of
// pixelsPerUniverse RGB pixels each.
func NewFrameBuffer(universeCount, pixelsPerUniverse int) *FrameBuffer {
	segment := pixelsPerUniverse * pixel.BytesPerPixel
	return &FrameBuffer{
		data:      make([]byte, universeCount*segment),
		segment:   segment,
		universes: universeCount,
	}
}

// UniverseCount returns the number of universes in a frame.
func (b *FrameBuffer) UniverseCount() int { return b.universes }

// SegmentLength returns the number of bytes per universe.
func (b *FrameBuffer) SegmentLength() int { return b.segment }

// Len returns the total buffer length.
func (b *FrameBuffer) Len() int { return len(b.data) }

// Bytes returns the whole buffer. The slice aliases the buffer.
func (b *FrameBuffer) Bytes() []byte { return b.data }

// Segment returns the bytes owned by universe u.
func (b *FrameBuffer) Segment(u int) []byte {
	return b.data[u*b.segment : (u+1)*b.segment]
}

// Write copies payload into universe u's segment.
func (b *FrameBuffer) Write(u int, payload []byte) {
	copy(b.Segment(u), payload)
}

// Zero clears the whole buffer.
func (b *FrameBuffer) Zero() {
	for i := range b.data {
		b.data[i] = 0
	}
}
