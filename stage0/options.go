package stage0

import (
	"time"

	"github.com/moffa90/go-stage0/protocol"
)

// Config holds the device configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Heartbeat is called on every housekeeping tick (optional)
	Heartbeat func()

	// HousekeepingInterval is the period of the housekeeping tick
	HousekeepingInterval time.Duration

	// PeekBufferSize bounds a single peek reply. Above protocol.MaxPeekLen
	// replies no longer fit a default host accumulator.
	PeekBufferSize int

	// AccumulatorSize bounds a single encoded request frame
	AccumulatorSize int

	// ReadBufferSize is the size of one port read
	ReadBufferSize int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		HousekeepingInterval: time.Second,
		PeekBufferSize:       protocol.MaxPeekLen,
		AccumulatorSize:      protocol.DefaultAccumulatorSize,
		ReadBufferSize:       64, // one USB full-speed bulk packet
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithLogger sets a logger for the dispatcher.
//
// Example:
//
//	dev := stage0.New(scratch, flash, rec, reset, stage0.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithHeartbeat sets a function called on every housekeeping tick, for
// example to blink a status LED.
func WithHeartbeat(fn func()) Option {
	return func(c *Config) {
		c.Heartbeat = fn
	}
}

// WithHousekeepingInterval sets the housekeeping tick period.
func WithHousekeepingInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HousekeepingInterval = d
		}
	}
}

// WithPeekBufferSize sets the largest range a single peek may return.
// Replies must still fit the host accumulator.
func WithPeekBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.PeekBufferSize = size
		}
	}
}

// WithAccumulatorSize sets the request accumulator capacity.
func WithAccumulatorSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.AccumulatorSize = size
		}
	}
}

// WithReadBufferSize sets the size of a single port read.
func WithReadBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ReadBufferSize = size
		}
	}
}
