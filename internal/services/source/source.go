// Package source provides the frame sources consumed by the frame loop:
// the Art-Net UDP receiver, pcap replay and the simulation pattern generator.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbernstein/lacylights-matrix/internal/services/dmx"
)

// ErrSourceExhausted is returned when a finite source has no more frames.
var ErrSourceExhausted = errors.New("frame source exhausted")

// FrameSource produces complete frames of RGB channel bytes, at least
// width*height*3 long. The returned slice is owned by the source and is only
// valid until the next call to Next.
type FrameSource interface {
	Name() string
	// Next blocks until a whole frame is available or ctx is done. When ctx
	// ends first, Next returns the partially filled frame together with an
	// *IncompleteFrameError wrapping ctx.Err().
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// StatsProvider is implemented by sources that assemble packets.
type StatsProvider interface {
	Stats() dmx.Stats
}

// IncompleteFrameError reports a cycle that ended before all universes arrived.
type IncompleteFrameError struct {
	Missing []int
	Err     error
}

func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("incomplete frame, missing universes %v: %v", e.Missing, e.Err)
}

func (e *IncompleteFrameError) Unwrap() error { return e.Err }

// PacketReader yields raw datagrams. The returned slice may be reused by the
// next call.
type PacketReader interface {
	ReadPacket(ctx context.Context) ([]byte, error)
}

// Assembling turns a stream of datagrams into frames with a dmx.Assembler.
type Assembling struct {
	reader    PacketReader
	assembler *dmx.Assembler
}

// NewAssembling creates an assembling source over reader.
func NewAssembling(reader PacketReader, cfg dmx.Config) *Assembling {
	return &Assembling{
		reader:    reader,
		assembler: dmx.NewAssembler(cfg),
	}
}

// Next implements FrameSource. Packets the assembler rejects are dropped
// silently.
func (s *Assembling) Next(ctx context.Context) ([]byte, error) {
	for {
		packet, err := s.reader.ReadPacket(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				missing := s.assembler.Missing()
				s.assembler.Abandon()
				return s.assembler.Buffer().Bytes(), &IncompleteFrameError{Missing: missing, Err: ctxErr}
			}
			return nil, err
		}

		if res, _ := s.assembler.Accept(packet); res == dmx.FrameComplete {
			return s.assembler.Buffer().Bytes(), nil
		}
	}
}

// Stats implements StatsProvider.
func (s *Assembling) Stats() dmx.Stats {
	return s.assembler.Stats()
}
