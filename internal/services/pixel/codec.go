// Package pixel converts DMX channel bytes into packed pixel values and lays
// them out on the LED matrix.
//
// A packed pixel is 0xWWRRGGBB: the first transport byte of each triple
// becomes the high color byte, the third the low byte. Which physical
// channel each byte drives is decided by the driver's ChannelOrder; the
// codec only packs by position.
package pixel

import "fmt"

// BytesPerPixel is the number of transport bytes per pixel.
const BytesPerPixel = 3

// Pack packs three transport bytes into one pixel value.
func Pack(b0, b1, b2 byte) uint32 {
	return uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
}

// Unpack returns the three color bytes of a packed pixel.
func Unpack(v uint32) (b0, b1, b2 byte) {
	return byte(v >> 16), byte(v >> 8), byte(v)
}

// White returns the white (or alpha) byte of a packed pixel.
func White(v uint32) byte {
	return byte(v >> 24)
}

// Decode packs src into dst, one pixel per three bytes. len(src) must be a
// multiple of three and dst must hold len(src)/3 pixels; anything else is a
// sizing bug in the caller and panics.
func Decode(dst []uint32, src []byte) {
	if len(src)%BytesPerPixel != 0 {
		panic(fmt.Sprintf("pixel: decode length %d is not a multiple of %d", len(src), BytesPerPixel))
	}
	n := len(src) / BytesPerPixel
	if len(dst) < n {
		panic(fmt.Sprintf("pixel: decode destination holds %d pixels, need %d", len(dst), n))
	}
	for i := 0; i < n; i++ {
		j := i * BytesPerPixel
		dst[i] = Pack(src[j], src[j+1], src[j+2])
	}
}

// Encode is the inverse of Decode and writes three bytes per pixel into dst.
func Encode(dst []byte, src []uint32) {
	if len(dst) < len(src)*BytesPerPixel {
		panic(fmt.Sprintf("pixel: encode destination holds %d bytes, need %d", len(dst), len(src)*BytesPerPixel))
	}
	for i, v := range src {
		j := i * BytesPerPixel
		dst[j], dst[j+1], dst[j+2] = Unpack(v)
	}
}
