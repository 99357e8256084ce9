package bootloader

import "time"

// Transfer phases reported in Progress.Phase.
const (
	PhasePeek      = "peek"
	PhasePoke      = "poke"
	PhaseFlashPeek = "flash-peek"
	PhaseFlashCopy = "flash-copy"
	PhaseBootload  = "bootload"
	PhaseComplete  = "complete"
)

// Progress contains information about a running transfer.
// Passed to ProgressCallback after every chunk.
type Progress struct {
	// Phase describes the current operation (see the Phase constants)
	Phase string

	// Address is the device address of the chunk just completed
	Address uint

	// BytesDone is the number of bytes transferred so far
	BytesDone int

	// BytesTotal is the size of the whole transfer
	BytesTotal int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the transfer started
	ElapsedTime time.Duration
}

// ProgressCallback is called periodically during transfers to report progress.
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	client := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - %d/%d bytes\n",
//	            p.Phase, p.Percentage, p.BytesDone, p.BytesTotal)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the client.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	client := bootloader.New(port, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
