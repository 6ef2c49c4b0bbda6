package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/bbernstein/lacylights-matrix/internal/services/dmx"
	"github.com/bbernstein/lacylights-matrix/pkg/artnet"
)

// Socket setup failures, kept apart so the process can report them with
// distinct exit codes.
var (
	ErrSocketCreate = errors.New("cannot create socket")
	ErrBind         = errors.New("bind failed")
)

// defaultPollInterval bounds how long a read blocks before cancellation is
// checked again.
const defaultPollInterval = 100 * time.Millisecond

// ArtNetConfig holds Art-Net receiver configuration.
type ArtNetConfig struct {
	BindAddr      string
	Port          int
	MaxPacketSize int
	PollInterval  time.Duration
	Assembler     dmx.Config
}

// ArtNet receives ArtDmx datagrams over UDP and assembles them into frames.
type ArtNet struct {
	*Assembling
	conn *net.UDPConn
}

// ListenArtNet binds the UDP socket and returns the source.
func ListenArtNet(cfg ArtNetConfig) (*ArtNet, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocketCreate, err)
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBind, err)
	}

	maxSize := cfg.MaxPacketSize
	if maxSize <= 0 {
		maxSize = artnet.DefaultMaxPacketSize
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	reader := &udpReader{
		conn:         conn,
		buffer:       make([]byte, maxSize),
		pollInterval: poll,
	}

	log.Printf("📡 Art-Net receiver listening on %s (%d universes x %d pixels)",
		conn.LocalAddr(), cfg.Assembler.UniverseCount, cfg.Assembler.PixelsPerUniverse)

	return &ArtNet{
		Assembling: NewAssembling(reader, cfg.Assembler),
		conn:       conn,
	}, nil
}

// Name implements FrameSource.
func (s *ArtNet) Name() string { return "artnet" }

// LocalAddr returns the bound address.
func (s *ArtNet) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close implements FrameSource.
func (s *ArtNet) Close() error {
	return s.conn.Close()
}

type udpReader struct {
	conn         *net.UDPConn
	buffer       []byte
	pollInterval time.Duration
}

// ReadPacket waits for one datagram, waking every poll interval to observe
// ctx. Datagrams larger than the buffer are truncated by the kernel.
func (r *udpReader) ReadPacket(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		deadline := time.Now().Add(r.pollInterval)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := r.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}

		n, _, err := r.conn.ReadFromUDP(r.buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return nil, err
		}
		return r.buffer[:n], nil
	}
}
