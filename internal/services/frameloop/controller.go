// Package frameloop runs the receive, convert, map and render cycle that
// drives the LED matrix.
package frameloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/bbernstein/lacylights-matrix/internal/services/dmx"
	"github.com/bbernstein/lacylights-matrix/internal/services/driver"
	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
	"github.com/bbernstein/lacylights-matrix/internal/services/pubsub"
	"github.com/bbernstein/lacylights-matrix/internal/services/source"
)

// ErrRender wraps a driver render failure. It is fatal to the loop.
var ErrRender = errors.New("render failed")

// State is a frame loop state.
type State int32

const (
	Idle State = iota
	Receiving
	Converting
	Rendering
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	case Converting:
		return "converting"
	case Rendering:
		return "rendering"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// TimeoutPolicy selects what is rendered when a frame does not complete in time.
type TimeoutPolicy string

const (
	// PolicyRepeat renders the last complete frame again.
	PolicyRepeat TimeoutPolicy = "repeat"
	// PolicyBlank renders an all-off frame.
	PolicyBlank TimeoutPolicy = "blank"
	// PolicyPartial renders whatever the incomplete frame holds.
	PolicyPartial TimeoutPolicy = "partial"
)

// timeoutLogInterval throttles the frame timeout log line.
const timeoutLogInterval = 5 * time.Second

// Config holds frame loop configuration.
type Config struct {
	Width  int
	Height int
	// FrameInterval is the pause after each render. Zero disables it.
	FrameInterval time.Duration
	// FrameTimeout bounds one receive cycle. Zero waits forever.
	FrameTimeout  time.Duration
	TimeoutPolicy TimeoutPolicy
	ClearOnExit   bool
}

// Frame is published on pubsub.TopicFrameRendered after every render.
type Frame struct {
	Sequence   uint64    `json:"sequence"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Pixels     []uint32  `json:"pixels"`
	RenderedAt time.Time `json:"renderedAt"`
}

// Status is a point-in-time view of the loop.
type Status struct {
	State          string     `json:"state"`
	Source         string     `json:"source"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	FramesRendered uint64     `json:"framesRendered"`
	Timeouts       uint64     `json:"timeouts"`
	LastFrameAt    *time.Time `json:"lastFrameAt,omitempty"`
	Packets        *dmx.Stats `json:"packets,omitempty"`
}

// Controller sequences one frame at a time from a source to a driver. Run
// must be called once; Status may be called from any goroutine.
type Controller struct {
	cfg    Config
	source source.FrameSource
	driver driver.Driver
	mapper *pixel.Mapper
	ps     *pubsub.PubSub

	pixels  []uint32
	last    []uint32
	hasLast bool

	state          atomic.Int32
	framesRendered atomic.Uint64
	timeouts       atomic.Uint64
	lastFrameAt    atomic.Int64

	lastTimeoutLog time.Time
}

// New creates a controller. ps may be nil.
func New(cfg Config, src source.FrameSource, drv driver.Driver, ps *pubsub.PubSub) (*Controller, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("frameloop: invalid matrix %dx%d", cfg.Width, cfg.Height)
	}
	n := cfg.Width * cfg.Height
	if got := len(drv.Buffer()); got != n {
		return nil, fmt.Errorf("frameloop: driver buffer holds %d pixels, matrix needs %d", got, n)
	}
	switch cfg.TimeoutPolicy {
	case PolicyRepeat, PolicyBlank, PolicyPartial:
	case "":
		cfg.TimeoutPolicy = PolicyRepeat
	default:
		return nil, fmt.Errorf("frameloop: unknown timeout policy %q", cfg.TimeoutPolicy)
	}

	return &Controller{
		cfg:    cfg,
		source: src,
		driver: drv,
		mapper: pixel.NewMapper(cfg.Width, cfg.Height),
		ps:     ps,
		pixels: make([]uint32, n),
		last:   make([]uint32, n),
	}, nil
}

// Run loops until ctx is cancelled, the source is exhausted or rendering
// fails, then drains. It returns nil on graceful shutdown and an error
// wrapping ErrRender on driver failure.
func (c *Controller) Run(ctx context.Context) error {
	log.Printf("🎞️  Frame loop started: %dx%d from %s, interval %v, timeout %v (%s)",
		c.cfg.Width, c.cfg.Height, c.source.Name(), c.cfg.FrameInterval, c.cfg.FrameTimeout, c.cfg.TimeoutPolicy)

	err := c.loop(ctx)
	c.drain()
	return err
}

func (c *Controller) loop(ctx context.Context) error {
	for ctx.Err() == nil {
		c.setState(Receiving)
		frame, err := c.receive(ctx)

		var incomplete *source.IncompleteFrameError
		switch {
		case err == nil:
			c.setState(Converting)
			c.decode(frame)
			copy(c.last, c.pixels)
			c.hasLast = true
		case ctx.Err() != nil:
			return nil
		case errors.As(err, &incomplete):
			if !c.onTimeout(frame, incomplete) {
				continue
			}
			c.setState(Converting)
		case errors.Is(err, source.ErrSourceExhausted):
			log.Printf("📭 Frame source %s exhausted", c.source.Name())
			return nil
		default:
			return fmt.Errorf("frame source %s: %w", c.source.Name(), err)
		}

		if err := c.mapper.Map(c.driver.Buffer(), c.pixels); err != nil {
			return err
		}

		c.setState(Rendering)
		if err := c.driver.Render(); err != nil {
			log.Printf("❌ Render failed: %v", err)
			return fmt.Errorf("%w: %v", ErrRender, err)
		}
		c.rendered()

		if !c.sleep(ctx) {
			return nil
		}
	}
	return nil
}

// receive asks the source for one frame, bounded by the frame timeout.
func (c *Controller) receive(ctx context.Context) ([]byte, error) {
	if c.cfg.FrameTimeout <= 0 {
		return c.source.Next(ctx)
	}
	cycleCtx, cancel := context.WithTimeout(ctx, c.cfg.FrameTimeout)
	defer cancel()
	return c.source.Next(cycleCtx)
}

func (c *Controller) decode(frame []byte) {
	pixel.Decode(c.pixels, frame[:len(c.pixels)*pixel.BytesPerPixel])
}

// onTimeout applies the timeout policy to c.pixels. It reports whether there
// is anything to render.
func (c *Controller) onTimeout(frame []byte, incomplete *source.IncompleteFrameError) bool {
	n := c.timeouts.Add(1)
	if now := time.Now(); now.Sub(c.lastTimeoutLog) >= timeoutLogInterval {
		c.lastTimeoutLog = now
		log.Printf("⏱️  Frame timed out after %v, missing universes %v (%d timeouts so far, policy %s)",
			c.cfg.FrameTimeout, incomplete.Missing, n, c.cfg.TimeoutPolicy)
	}

	switch c.cfg.TimeoutPolicy {
	case PolicyBlank:
		c.mapper.Clear(c.pixels)
	case PolicyPartial:
		if len(frame) < len(c.pixels)*pixel.BytesPerPixel {
			return false
		}
		c.decode(frame)
	default:
		if !c.hasLast {
			return false
		}
		copy(c.pixels, c.last)
	}
	return true
}

func (c *Controller) rendered() {
	seq := c.framesRendered.Add(1)
	now := time.Now()
	c.lastFrameAt.Store(now.UnixNano())

	if c.ps == nil || c.ps.SubscriberCount(pubsub.TopicFrameRendered) == 0 {
		return
	}
	pixels := make([]uint32, len(c.pixels))
	copy(pixels, c.pixels)
	c.ps.Publish(pubsub.TopicFrameRendered, Frame{
		Sequence:   seq,
		Width:      c.cfg.Width,
		Height:     c.cfg.Height,
		Pixels:     pixels,
		RenderedAt: now,
	})
}

// sleep waits out the frame interval. It returns false if ctx ended first.
func (c *Controller) sleep(ctx context.Context) bool {
	if c.cfg.FrameInterval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.cfg.FrameInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// drain clears the matrix if configured, then releases the driver and the
// source. Failures here are logged only.
func (c *Controller) drain() {
	c.setState(Draining)

	if c.cfg.ClearOnExit {
		c.mapper.Clear(c.pixels)
		if err := c.mapper.Map(c.driver.Buffer(), c.pixels); err == nil {
			if err := c.driver.Render(); err != nil {
				log.Printf("⚠️  Failed to clear matrix on exit: %v", err)
			}
		}
	}
	if err := c.driver.Shutdown(); err != nil {
		log.Printf("⚠️  Driver shutdown failed: %v", err)
	}
	if err := c.source.Close(); err != nil {
		log.Printf("⚠️  Failed to close frame source: %v", err)
	}

	c.setState(Terminated)
	log.Printf("🛑 Frame loop terminated after %d frames (%d timeouts)", c.framesRendered.Load(), c.timeouts.Load())
}

func (c *Controller) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.ps != nil && c.ps.SubscriberCount(pubsub.TopicLoopState) > 0 {
		c.ps.Publish(pubsub.TopicLoopState, s.String())
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Status returns a snapshot of the loop.
func (c *Controller) Status() Status {
	st := Status{
		State:          c.State().String(),
		Source:         c.source.Name(),
		Width:          c.cfg.Width,
		Height:         c.cfg.Height,
		FramesRendered: c.framesRendered.Load(),
		Timeouts:       c.timeouts.Load(),
	}
	if ns := c.lastFrameAt.Load(); ns != 0 {
		t := time.Unix(0, ns)
		st.LastFrameAt = &t
	}
	if sp, ok := c.source.(source.StatsProvider); ok {
		stats := sp.Stats()
		st.Packets = &stats
	}
	return st
}
