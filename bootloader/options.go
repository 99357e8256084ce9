package bootloader

import "time"

// MaxChunkSize is the largest chunk a single request may carry. A peek reply
// for it, with framing, still fits the 512-byte accumulator on either side.
const MaxChunkSize = 384

// Config holds the client configuration.
type Config struct {
	// ProgressCallback is called during transfers to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ResponseTimeout bounds the wait for a single reply. Zero waits until
	// the context is done.
	ResponseTimeout time.Duration

	// ChunkSize is the maximum payload per peek or poke request
	// Default is 256 bytes
	ChunkSize int

	// ReadBufferSize is the size of a single port read
	ReadBufferSize int

	// EraseSize is the device flash erase block size. Flash pokes are staged
	// in scratch windows that are a multiple of it.
	EraseSize int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ResponseTimeout: 0,
		ChunkSize:       256,
		ReadBufferSize:  64,
		EraseSize:       4096,
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithProgressCallback sets a callback function to track transfer progress.
//
// Example:
//
//	client := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the client operations.
//
// Example:
//
//	client := bootloader.New(port, bootloader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithResponseTimeout sets how long to wait for each reply. Zero waits
// until the context is done.
//
// Example:
//
//	client := bootloader.New(port, bootloader.WithResponseTimeout(2*time.Second))
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithChunkSize sets the maximum payload per peek or poke request.
// Values outside 1..MaxChunkSize are ignored.
//
// Example:
//
//	client := bootloader.New(port, bootloader.WithChunkSize(128))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= MaxChunkSize {
			c.ChunkSize = size
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

// WithEraseSize sets the device flash erase block size.
func WithEraseSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.EraseSize = size
		}
	}
}
