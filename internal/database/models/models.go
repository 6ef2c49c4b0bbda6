// Package models contains the database model definitions.
package models

import (
	"time"
)

// Run exit reasons.
const (
	ExitRunning      = "RUNNING"
	ExitShutdown     = "SHUTDOWN"
	ExitRenderFailed = "RENDER_FAILED"
	ExitSourceFailed = "SOURCE_FAILED"
)

// RunRecord is one run of the frame loop, from start to drain.
// Table: runs
type RunRecord struct {
	ID                string     `gorm:"column:id;primaryKey" json:"id"`
	StartedAt         time.Time  `gorm:"column:started_at;index" json:"startedAt"`
	StoppedAt         *time.Time `gorm:"column:stopped_at" json:"stoppedAt,omitempty"`
	Width             int        `gorm:"column:width" json:"width"`
	Height            int        `gorm:"column:height" json:"height"`
	UniverseCount     int        `gorm:"column:universe_count" json:"universeCount"`
	PixelsPerUniverse int        `gorm:"column:pixels_per_universe" json:"pixelsPerUniverse"`
	FPS               int        `gorm:"column:fps" json:"fps"`
	Source            string     `gorm:"column:source" json:"source"`
	Driver            string     `gorm:"column:driver" json:"driver"`
	ChannelOrder      string     `gorm:"column:channel_order" json:"channelOrder"`

	FramesRendered  int64 `gorm:"column:frames_rendered" json:"framesRendered"`
	Timeouts        int64 `gorm:"column:timeouts" json:"timeouts"`
	PacketsAccepted int64 `gorm:"column:packets_accepted" json:"packetsAccepted"`
	PacketsRejected int64 `gorm:"column:packets_rejected" json:"packetsRejected"`
	Duplicates      int64 `gorm:"column:duplicates" json:"duplicates"`

	ExitReason string  `gorm:"column:exit_reason;default:RUNNING" json:"exitReason"`
	Error      *string `gorm:"column:error" json:"error,omitempty"`
}

func (RunRecord) TableName() string { return "runs" }

// Duration returns how long the run lasted, or has lasted so far.
func (r *RunRecord) Duration(now time.Time) time.Duration {
	if r.StoppedAt != nil {
		return r.StoppedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}
