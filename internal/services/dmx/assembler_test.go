package dmx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
	"github.com/bbernstein/lacylights-matrix/pkg/artnet"
)

const (
	testUniverses = 5
	testPixels    = 170
)

func newTestAssembler() *Assembler {
	return NewAssembler(Config{UniverseCount: testUniverses, PixelsPerUniverse: testPixels})
}

// packetFor builds an ArtDmx packet whose universe byte is u (0-based).
func packetFor(u int, fill byte) []byte {
	channels := bytes.Repeat([]byte{fill}, testPixels*3)
	return artnet.BuildDMXPacket(u+1, channels, 0)
}

func TestNewAssembler(t *testing.T) {
	a := newTestAssembler()

	if a.Buffer().Len() != testUniverses*testPixels*3 {
		t.Errorf("buffer length = %d, want %d", a.Buffer().Len(), testUniverses*testPixels*3)
	}
	if a.Buffer().UniverseCount() != testUniverses {
		t.Errorf("UniverseCount() = %d, want %d", a.Buffer().UniverseCount(), testUniverses)
	}
	if a.MinPacketLength() != 18+510 {
		t.Errorf("MinPacketLength() = %d, want 528", a.MinPacketLength())
	}
	if got := len(a.Missing()); got != testUniverses {
		t.Errorf("Missing() has %d universes, want %d", got, testUniverses)
	}
}

func TestAccept_FirstWriterWins(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Accept(packetFor(3, 0x11))
	if err != nil || res != Accepted {
		t.Fatalf("Accept() = %v, %v; want accepted", res, err)
	}
	if !bytes.Equal(a.Buffer().Segment(3), bytes.Repeat([]byte{0x11}, testPixels*3)) {
		t.Error("segment 3 should hold the payload of the first packet")
	}
	for _, u := range []int{0, 1, 2, 4} {
		if !bytes.Equal(a.Buffer().Segment(u), make([]byte, testPixels*3)) {
			t.Errorf("segment %d should be untouched", u)
		}
	}
}

// All five universes with 0xAA payloads complete a frame.
func TestAccept_CompleteFrame(t *testing.T) {
	a := newTestAssembler()

	for u := 0; u < testUniverses; u++ {
		res, err := a.Accept(packetFor(u, 0xAA))
		if err != nil {
			t.Fatalf("Accept(universe %d) error = %v", u, err)
		}
		want := Accepted
		if u == testUniverses-1 {
			want = FrameComplete
		}
		if res != want {
			t.Fatalf("Accept(universe %d) = %v, want %v", u, res, want)
		}
	}

	pixels := make([]uint32, testUniverses*testPixels)
	pixel.Decode(pixels, a.Buffer().Bytes())
	for i, v := range pixels {
		if v != 0xAAAAAA {
			t.Fatalf("pixel %d = 0x%06x, want 0xAAAAAA", i, v)
		}
	}

	if a.Received() != 0 {
		t.Errorf("Received() after completion = %d, want 0", a.Received())
	}
	if s := a.Stats(); s.FramesComplete != 1 || s.Accepted != 5 {
		t.Errorf("Stats() = %+v, want 1 frame and 5 accepted", s)
	}
}

// A second packet for universe 2 is discarded and does not count.
func TestAccept_DuplicateUniverseDiscarded(t *testing.T) {
	a := newTestAssembler()

	if res, _ := a.Accept(packetFor(2, 0x01)); res != Accepted {
		t.Fatalf("first packet for universe 2 = %v, want accepted", res)
	}
	if res, err := a.Accept(packetFor(2, 0x02)); res != Accepted || err != nil {
		t.Fatalf("duplicate packet for universe 2 = %v, %v; want accepted without error", res, err)
	}
	if a.Received() != 1 {
		t.Errorf("Received() = %d, want 1 (duplicates do not count)", a.Received())
	}

	for _, u := range []int{0, 1, 3} {
		if res, _ := a.Accept(packetFor(u, 0x05)); res != Accepted {
			t.Fatalf("Accept(universe %d) = %v, want accepted", u, res)
		}
	}
	res, _ := a.Accept(packetFor(4, 0x05))
	if res != FrameComplete {
		t.Fatalf("Accept(universe 4) = %v, want frame complete", res)
	}

	if !bytes.Equal(a.Buffer().Segment(2), bytes.Repeat([]byte{0x01}, testPixels*3)) {
		t.Error("universe 2 should keep the first payload")
	}
	if a.Stats().Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", a.Stats().Duplicates)
	}
}

func TestAccept_DuplicatesNeverComplete(t *testing.T) {
	a := newTestAssembler()

	for i := 0; i < 50; i++ {
		if res, _ := a.Accept(packetFor(0, byte(i))); res == FrameComplete {
			t.Fatal("a flood of one universe must not complete a frame")
		}
	}
	if got := a.Missing(); len(got) != 4 {
		t.Errorf("Missing() = %v, want universes 1-4", got)
	}
}

// A 10-byte packet is rejected with no state change.
func TestAccept_ShortPacketRejected(t *testing.T) {
	a := newTestAssembler()
	a.Accept(packetFor(1, 0x10))

	res, err := a.Accept(make([]byte, 10))
	if res != Rejected {
		t.Fatalf("Accept(10 bytes) = %v, want rejected", res)
	}
	if !errors.Is(err, ErrPacketTooShort) {
		t.Errorf("Accept(10 bytes) error = %v, want ErrPacketTooShort", err)
	}
	if a.Received() != 1 {
		t.Errorf("Received() = %d, want 1", a.Received())
	}

	// Header present but channel data truncated.
	truncated := packetFor(0, 0x99)[:artnet.DataOffset+100]
	if res, err := a.Accept(truncated); res != Rejected || !errors.Is(err, ErrPacketTooShort) {
		t.Errorf("Accept(truncated) = %v, %v; want rejected too short", res, err)
	}
	if !bytes.Equal(a.Buffer().Segment(0), make([]byte, testPixels*3)) {
		t.Error("truncated packet must not write into the buffer")
	}
}

// Universe 7 with five universes is rejected.
func TestAccept_UniverseOutOfRange(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Accept(packetFor(7, 0xff))
	if res != Rejected {
		t.Fatalf("Accept(universe 7) = %v, want rejected", res)
	}
	if !errors.Is(err, ErrUniverseOutOfRange) {
		t.Errorf("error = %v, want ErrUniverseOutOfRange", err)
	}
	if a.Received() != 0 {
		t.Errorf("Received() = %d, want 0", a.Received())
	}
	if !bytes.Equal(a.Buffer().Bytes(), make([]byte, a.Buffer().Len())) {
		t.Error("rejected packet must not write into the buffer")
	}
	if a.Stats().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", a.Stats().Rejected)
	}
}

func TestAccept_Strict(t *testing.T) {
	a := NewAssembler(Config{UniverseCount: 1, PixelsPerUniverse: 2, Strict: true})

	bad := artnet.BuildDMXPacket(1, []byte{1, 2, 3, 4, 5, 6}, 0)
	bad[0] = 'Z'
	if res, err := a.Accept(bad); res != Rejected || !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Accept(bad ID) = %v, %v; want rejected invalid header", res, err)
	}

	good := artnet.BuildDMXPacket(1, []byte{1, 2, 3, 4, 5, 6}, 0)
	if res, err := a.Accept(good); res != FrameComplete || err != nil {
		t.Errorf("Accept(good) = %v, %v; want frame complete", res, err)
	}
}

func TestAccept_NextCycleOverwrites(t *testing.T) {
	a := NewAssembler(Config{UniverseCount: 2, PixelsPerUniverse: 1})

	a.Accept(artnet.BuildDMXPacket(1, []byte{1, 1, 1}, 0))
	if res, _ := a.Accept(artnet.BuildDMXPacket(2, []byte{2, 2, 2}, 0)); res != FrameComplete {
		t.Fatal("expected first frame to complete")
	}

	// A new cycle accepts fresh data for universe 0 again.
	if res, _ := a.Accept(artnet.BuildDMXPacket(1, []byte{9, 9, 9}, 0)); res != Accepted {
		t.Fatal("expected universe 0 to be accepted in the new cycle")
	}
	if !bytes.Equal(a.Buffer().Segment(0), []byte{9, 9, 9}) {
		t.Errorf("segment 0 = %v, want [9 9 9]", a.Buffer().Segment(0))
	}
}

func TestAccept_CopiesPayload(t *testing.T) {
	a := NewAssembler(Config{UniverseCount: 2, PixelsPerUniverse: 1})

	packet := artnet.BuildDMXPacket(1, []byte{7, 7, 7}, 0)
	a.Accept(packet)
	packet[artnet.DataOffset] = 0

	if a.Buffer().Segment(0)[0] != 7 {
		t.Error("assembler must copy the payload out of the receive buffer")
	}
}

func TestAbandon(t *testing.T) {
	a := newTestAssembler()
	a.Accept(packetFor(0, 1))
	a.Accept(packetFor(1, 1))

	a.Abandon()
	if a.Received() != 0 {
		t.Errorf("Received() after Abandon = %d, want 0", a.Received())
	}
	if a.Stats().CyclesAbandoned != 1 {
		t.Errorf("CyclesAbandoned = %d, want 1", a.Stats().CyclesAbandoned)
	}

	// An empty cycle is not counted.
	a.Abandon()
	if a.Stats().CyclesAbandoned != 1 {
		t.Errorf("CyclesAbandoned = %d, want 1", a.Stats().CyclesAbandoned)
	}
}

func TestResultString(t *testing.T) {
	if Rejected.String() != "rejected" || Accepted.String() != "accepted" || FrameComplete.String() != "frame-complete" {
		t.Error("unexpected Result strings")
	}
}
