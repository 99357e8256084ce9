package console

import (
	"fmt"

	"golang.org/x/term"
)

// RawTerminal puts the terminal on fd into raw mode so keystrokes, Ctrl-]
// included, reach the session unbuffered. The returned function restores
// the previous mode. If fd is not a terminal, RawTerminal does nothing.
func RawTerminal(fd int) (restore func() error, err error) {
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return func() error { return term.Restore(fd, state) }, nil
}
