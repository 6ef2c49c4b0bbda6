package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/bbernstein/lacylights-matrix/internal/services/dmx"
)

// PcapConfig holds pcap replay configuration.
type PcapConfig struct {
	Path string
	// Port filters UDP datagrams by destination port. Zero keeps all.
	Port      int
	Loop      bool
	Assembler dmx.Config
}

// Pcap replays UDP payloads from a capture file through the assembler.
// Packets are replayed as fast as the frame loop asks for them.
type Pcap struct {
	*Assembling
	reader *pcapReader
}

// OpenPcap opens a capture file for replay.
func OpenPcap(cfg PcapConfig) (*Pcap, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", cfg.Path, err)
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read capture header %s: %w", cfg.Path, err)
	}

	reader := &pcapReader{
		file: f,
		r:    r,
		port: layers.UDPPort(cfg.Port),
		loop: cfg.Loop,
	}

	log.Printf("📼 Replaying %s (link type %s, loop=%v)", cfg.Path, r.LinkType(), cfg.Loop)

	return &Pcap{
		Assembling: NewAssembling(reader, cfg.Assembler),
		reader:     reader,
	}, nil
}

// Name implements FrameSource.
func (s *Pcap) Name() string { return "pcap" }

// Close implements FrameSource.
func (s *Pcap) Close() error {
	return s.reader.file.Close()
}

type pcapReader struct {
	file *os.File
	r    *pcapgo.Reader
	port layers.UDPPort
	loop bool

	// matched counts datagrams returned in the current pass, so an endless
	// loop over a file with no usable packets ends instead.
	matched int
}

func (p *pcapReader) ReadPacket(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, _, err := p.r.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if !p.loop || p.matched == 0 {
				return nil, ErrSourceExhausted
			}
			if err := p.rewind(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read capture: %w", err)
		}

		packet := gopacket.NewPacket(data, p.r.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if p.port != 0 && udp.DstPort != p.port {
			continue
		}

		p.matched++
		return udp.Payload, nil
	}
}

func (p *pcapReader) rewind() error {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind capture: %w", err)
	}
	r, err := pcapgo.NewReader(p.file)
	if err != nil {
		return fmt.Errorf("failed to rewind capture: %w", err)
	}
	p.r = r
	p.matched = 0
	return nil
}
