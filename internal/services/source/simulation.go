package source

import (
	"context"

	"github.com/bbernstein/lacylights-matrix/internal/services/pattern"
)

// Simulation produces frames from a pattern generator. Every call to Next
// yields a frame immediately.
type Simulation struct {
	pattern pattern.Pattern
	width   int
	height  int
	frame   []byte
}

// NewSimulation creates a simulation source for a width x height matrix.
func NewSimulation(p pattern.Pattern, width, height int) *Simulation {
	return &Simulation{
		pattern: p,
		width:   width,
		height:  height,
		frame:   make([]byte, width*height*3),
	}
}

// Name implements FrameSource.
func (s *Simulation) Name() string { return "simulation:" + s.pattern.Name() }

// Next implements FrameSource.
func (s *Simulation) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.pattern.Draw(s.frame, s.width, s.height)
	return s.frame, nil
}

// Close implements FrameSource.
func (s *Simulation) Close() error { return nil }
