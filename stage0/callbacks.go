package stage0

// Logger is an optional logging interface that can be provided to the device.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Resetter restarts the device. On hardware Reset never returns.
type Resetter interface {
	Reset()
}

// ResetterFunc adapts a function to Resetter.
type ResetterFunc func()

// Reset implements Resetter.
func (f ResetterFunc) Reset() {
	f()
}
