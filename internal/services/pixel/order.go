package pixel

import (
	"fmt"
	"strings"
)

// ChannelOrder is the order in which a strip expects color components on the wire.
type ChannelOrder struct {
	name       string
	components []byte // 'r', 'g', 'b', 'w'
}

var channelOrders = []string{"rgb", "rbg", "grb", "gbr", "brg", "bgr", "rgbw", "grbw"}

// ParseChannelOrder parses a strip type name such as "grb" or "rgbw".
func ParseChannelOrder(name string) (ChannelOrder, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, known := range channelOrders {
		if n == known {
			return ChannelOrder{name: n, components: []byte(n)}, nil
		}
	}
	return ChannelOrder{}, fmt.Errorf("invalid channel order %q (must be one of: %s)", name, strings.Join(channelOrders, ", "))
}

// String returns the order name.
func (o ChannelOrder) String() string { return o.name }

// Channels returns the number of bytes per pixel on the wire.
func (o ChannelOrder) Channels() int { return len(o.components) }

// HasWhite reports whether the strip has a dedicated white channel.
func (o ChannelOrder) HasWhite() bool { return len(o.components) == 4 }

// Wire writes the components of packed pixel v into dst in wire order and
// returns the number of bytes written. Red is the high color byte.
func (o ChannelOrder) Wire(dst []byte, v uint32) int {
	r, g, b := Unpack(v)
	for i, c := range o.components {
		switch c {
		case 'r':
			dst[i] = r
		case 'g':
			dst[i] = g
		case 'b':
			dst[i] = b
		case 'w':
			dst[i] = White(v)
		}
	}
	return len(o.components)
}
