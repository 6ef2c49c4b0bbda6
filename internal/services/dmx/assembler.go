package dmx

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bbernstein/lacylights-matrix/pkg/artnet"
)

// Result is the outcome of offering one packet to the assembler.
type Result int

const (
	// Rejected means the packet was dropped without touching the cycle.
	Rejected Result = iota
	// Accepted means the packet was valid; its payload was copied only if it
	// was the first one for its universe in this cycle.
	Accepted
	// FrameComplete means every universe has now been received and the frame
	// buffer holds a whole frame. The completion state has been reset.
	FrameComplete
)

func (r Result) String() string {
	switch r {
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	case FrameComplete:
		return "frame-complete"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Rejection reasons.
var (
	ErrPacketTooShort     = errors.New("packet too short")
	ErrUniverseOutOfRange = errors.New("universe out of range")
	ErrInvalidHeader      = errors.New("invalid Art-Net header")
)

// Config holds assembler configuration.
type Config struct {
	UniverseCount     int
	PixelsPerUniverse int
	// Strict also requires the Art-Net ID and the ArtDmx opcode.
	Strict bool
}

// Stats are cumulative assembler counters. Safe to read from any goroutine.
type Stats struct {
	Accepted        uint64 `json:"accepted"`
	Duplicates      uint64 `json:"duplicates"`
	Rejected        uint64 `json:"rejected"`
	FramesComplete  uint64 `json:"framesComplete"`
	CyclesAbandoned uint64 `json:"cyclesAbandoned"`
}

// Assembler collects one packet per universe into a FrameBuffer. The first
// packet for a universe within a cycle wins; later ones are accepted but
// their payload is discarded, so a flood for one universe can neither mask a
// missing one nor rewrite data mid-cycle.
//
// Accept, Abandon, Missing and Buffer must be called from a single goroutine.
type Assembler struct {
	buffer     *FrameBuffer
	dataLength int
	strict     bool

	received      []bool
	receivedCount int

	accepted        atomic.Uint64
	duplicates      atomic.Uint64
	rejected        atomic.Uint64
	framesComplete  atomic.Uint64
	cyclesAbandoned atomic.Uint64
}

// NewAssembler creates an assembler and its frame buffer.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{
		buffer:     NewFrameBuffer(cfg.UniverseCount, cfg.PixelsPerUniverse),
		dataLength: cfg.PixelsPerUniverse * 3,
		strict:     cfg.Strict,
		received:   make([]bool, cfg.UniverseCount),
	}
}

// MinPacketLength returns the shortest packet the assembler will accept.
func (a *Assembler) MinPacketLength() int {
	return artnet.MinPacketLength(a.dataLength)
}

// Accept routes one datagram into the frame buffer. The packet bytes are
// copied, so the caller may reuse its receive buffer. A non-nil error is
// returned only with Rejected and names the reason.
func (a *Assembler) Accept(packet []byte) (Result, error) {
	if a.strict {
		if err := artnet.ValidateHeader(packet); err != nil {
			a.rejected.Add(1)
			return Rejected, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
	}

	pkt, err := artnet.ParseDMXPacket(packet, a.dataLength)
	if err != nil {
		a.rejected.Add(1)
		return Rejected, fmt.Errorf("%w: %d bytes, need %d", ErrPacketTooShort, len(packet), a.MinPacketLength())
	}

	u := pkt.Universe
	if u >= len(a.received) {
		a.rejected.Add(1)
		return Rejected, fmt.Errorf("%w: %d (universe count %d)", ErrUniverseOutOfRange, u, len(a.received))
	}

	if a.received[u] {
		a.duplicates.Add(1)
		return Accepted, nil
	}

	a.buffer.Write(u, pkt.Data)
	a.received[u] = true
	a.receivedCount++
	a.accepted.Add(1)

	if a.receivedCount < len(a.received) {
		return Accepted, nil
	}

	a.resetCycle()
	a.framesComplete.Add(1)
	return FrameComplete, nil
}

// Buffer returns the frame buffer. Its contents form a whole frame right
// after Accept returns FrameComplete and until the next Accept.
func (a *Assembler) Buffer() *FrameBuffer {
	return a.buffer
}

// Received returns how many distinct universes the current cycle holds.
func (a *Assembler) Received() int {
	return a.receivedCount
}

// Missing lists the universes not yet received in the current cycle.
func (a *Assembler) Missing() []int {
	var missing []int
	for u, ok := range a.received {
		if !ok {
			missing = append(missing, u)
		}
	}
	return missing
}

// Abandon drops the current cycle's completion state so a fresh cycle
// starts. Buffer contents are left in place.
func (a *Assembler) Abandon() {
	if a.receivedCount > 0 {
		a.cyclesAbandoned.Add(1)
	}
	a.resetCycle()
}

// Stats returns a snapshot of the counters.
func (a *Assembler) Stats() Stats {
	return Stats{
		Accepted:        a.accepted.Load(),
		Duplicates:      a.duplicates.Load(),
		Rejected:        a.rejected.Load(),
		FramesComplete:  a.framesComplete.Load(),
		CyclesAbandoned: a.cyclesAbandoned.Load(),
	}
}

func (a *Assembler) resetCycle() {
	for i := range a.received {
		a.received[i] = false
	}
	a.receivedCount = 0
}
