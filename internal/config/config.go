// Package config provides configuration management for the LacyLights matrix bridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
	"github.com/bbernstein/lacylights-matrix/pkg/artnet"
)

// Frame sources.
const (
	SourceArtNet     = "artnet"
	SourceSimulation = "simulation"
	SourcePcap       = "pcap"
)

// Rate modes. Legacy sleeps 1/(fps+1) between frames, exact sleeps 1/fps
// (no sleep at fps 0).
const (
	RateModeLegacy = "legacy"
	RateModeExact  = "exact"
)

// Frame timeout policies.
const (
	TimeoutPolicyRepeat  = "repeat"
	TimeoutPolicyBlank   = "blank"
	TimeoutPolicyPartial = "partial"
)

// LED drivers.
const (
	DriverMemory   = "memory"
	DriverAdalight = "adalight"
)

// MaxUniverses is the number of universes addressable by the one-byte universe index.
const MaxUniverses = 256

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration values for the bridge.
type Config struct {
	// Server configuration
	Port        string
	Env         string
	HTTPEnabled bool
	CORSOrigin  string

	// Run history database; empty disables it
	DatabaseURL string

	// Matrix geometry
	Width             int
	Height            int
	PixelsPerUniverse int

	// Frame loop
	FPS                int
	RateMode           string
	ClearOnExit        bool
	FrameTimeout       time.Duration // 0 waits forever for missing universes
	FrameTimeoutPolicy string

	// Frame source
	FrameSource       string
	SimulationPattern string
	PcapFile          string
	PcapLoop          bool

	// Art-Net receiver
	ArtNetBindAddr      string
	ArtNetPort          int
	ArtNetMaxPacketSize int
	ArtNetStrict        bool

	// LED driver
	Driver         string
	ChannelOrder   string
	Brightness     int
	SerialPort     string
	SerialBaudRate int
}

// Load loads configuration from environment variables with sensible defaults.
// The defaults describe a 170x5 matrix fed by five universes at 60 fps.
func Load() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "4000"),
		Env:         getEnv("ENV", "development"),
		HTTPEnabled: getEnvBool("HTTP_ENABLED", true),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./runs.db"),

		// Matrix
		Width:             getEnvInt("MATRIX_WIDTH", 170),
		Height:            getEnvInt("MATRIX_HEIGHT", 5),
		PixelsPerUniverse: getEnvInt("PIXELS_PER_UNIVERSE", 170),

		// Frame loop
		FPS:                getEnvInt("FPS", 60),
		RateMode:           strings.ToLower(getEnv("RATE_MODE", RateModeLegacy)),
		ClearOnExit:        getEnvBool("CLEAR_ON_EXIT", true),
		FrameTimeout:       getEnvDuration("FRAME_TIMEOUT", 0),
		FrameTimeoutPolicy: strings.ToLower(getEnv("FRAME_TIMEOUT_POLICY", TimeoutPolicyRepeat)),

		// Source
		FrameSource:       strings.ToLower(getEnv("FRAME_SOURCE", SourceArtNet)),
		SimulationPattern: strings.ToLower(getEnv("SIMULATION_PATTERN", "dot")),
		PcapFile:          getEnv("PCAP_FILE", ""),
		PcapLoop:          getEnvBool("PCAP_LOOP", false),

		// Art-Net
		ArtNetBindAddr:      getEnv("ARTNET_BIND_ADDR", "0.0.0.0"),
		ArtNetPort:          getEnvInt("ARTNET_PORT", artnet.DefaultPort),
		ArtNetMaxPacketSize: getEnvInt("ARTNET_MAX_PACKET_SIZE", artnet.DefaultMaxPacketSize),
		ArtNetStrict:        getEnvBool("ARTNET_STRICT", false),

		// Driver
		Driver:         strings.ToLower(getEnv("DRIVER", DriverMemory)),
		ChannelOrder:   getEnv("CHANNEL_ORDER", "brg"),
		Brightness:     getEnvInt("BRIGHTNESS", 100),
		SerialPort:     getEnv("DRIVER_SERIAL_PORT", ""),
		SerialBaudRate: getEnvInt("DRIVER_BAUD_RATE", 115200),
	}
}

// Validate reports the first configuration problem found. Any error here is
// fatal at startup.
func (c *Config) Validate() error {
	if c.Width <= 0 {
		return invalid("matrix width must be positive, got %d", c.Width)
	}
	if c.Height <= 0 {
		return invalid("matrix height must be positive, got %d", c.Height)
	}
	if c.PixelsPerUniverse <= 0 {
		return invalid("pixels per universe must be positive, got %d", c.PixelsPerUniverse)
	}
	if n := c.UniverseCount(); n > MaxUniverses {
		return invalid("%d universes needed, at most %d supported", n, MaxUniverses)
	}
	if c.FPS < 0 {
		return invalid("fps must not be negative, got %d", c.FPS)
	}
	if c.FrameTimeout < 0 {
		return invalid("frame timeout must not be negative, got %v", c.FrameTimeout)
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		return invalid("brightness must be 0-255, got %d", c.Brightness)
	}
	if _, err := pixel.ParseChannelOrder(c.ChannelOrder); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.RateMode {
	case RateModeLegacy, RateModeExact:
	default:
		return invalid("unknown rate mode %q", c.RateMode)
	}

	switch c.FrameTimeoutPolicy {
	case TimeoutPolicyRepeat, TimeoutPolicyBlank, TimeoutPolicyPartial:
	default:
		return invalid("unknown frame timeout policy %q", c.FrameTimeoutPolicy)
	}

	switch c.FrameSource {
	case SourceArtNet:
		if c.ArtNetPort <= 0 || c.ArtNetPort > 65535 {
			return invalid("invalid Art-Net port %d", c.ArtNetPort)
		}
		if minLen := artnet.MinPacketLength(c.UniverseDataLength()); c.ArtNetMaxPacketSize < minLen {
			return invalid("max packet size %d is below the minimum packet length %d", c.ArtNetMaxPacketSize, minLen)
		}
	case SourcePcap:
		if c.PcapFile == "" {
			return invalid("PCAP_FILE is required for the pcap frame source")
		}
	case SourceSimulation:
		switch c.SimulationPattern {
		case "dot", "breathe":
		default:
			return invalid("unknown simulation pattern %q", c.SimulationPattern)
		}
	default:
		return invalid("unknown frame source %q", c.FrameSource)
	}

	switch c.Driver {
	case DriverMemory:
	case DriverAdalight:
		if c.SerialPort == "" {
			return invalid("DRIVER_SERIAL_PORT is required for the adalight driver")
		}
		if c.SerialBaudRate <= 0 {
			return invalid("invalid serial baud rate %d", c.SerialBaudRate)
		}
		if order, _ := pixel.ParseChannelOrder(c.ChannelOrder); order.HasWhite() {
			return invalid("adalight driver does not support white channel order %q", c.ChannelOrder)
		}
	default:
		return invalid("unknown driver %q", c.Driver)
	}

	return nil
}

// PixelCount returns the number of pixels in the matrix.
func (c *Config) PixelCount() int {
	return c.Width * c.Height
}

// UniverseCount returns ceil(width*height / pixels_per_universe).
func (c *Config) UniverseCount() int {
	if c.PixelsPerUniverse <= 0 {
		return 0
	}
	return (c.PixelCount() + c.PixelsPerUniverse - 1) / c.PixelsPerUniverse
}

// UniverseDataLength returns the number of channel bytes consumed per packet.
func (c *Config) UniverseDataLength() int {
	return c.PixelsPerUniverse * 3
}

// FrameInterval returns the pause after each rendered frame.
func (c *Config) FrameInterval() time.Duration {
	if c.FPS < 0 {
		return 0
	}
	if c.RateMode == RateModeExact {
		if c.FPS == 0 {
			return 0
		}
		return time.Second / time.Duration(c.FPS)
	}
	return time.Second / time.Duration(c.FPS+1)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration reads a duration. Plain integers are milliseconds, anything
// else is parsed with time.ParseDuration.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
