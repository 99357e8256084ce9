package logging

import "github.com/rs/zerolog"

// Adapter exposes a zerolog.Logger through the Debug/Info/Error interface
// used by the bootloader, discovery, console, stage0 and sim packages.
// Key/value pairs become structured fields.
type Adapter struct {
	logger zerolog.Logger
}

// NewAdapter wraps logger.
func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Component returns an adapter that tags every event with component.
func (a *Adapter) Component(name string) *Adapter {
	return &Adapter{logger: a.logger.With().Str("component", name).Logger()}
}

// Debug logs msg with key/value pairs at debug level.
func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

// Info logs msg with key/value pairs at info level.
func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info().Fields(keysAndValues).Msg(msg)
}

// Error logs msg with key/value pairs at error level.
func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error().Fields(keysAndValues).Msg(msg)
}
