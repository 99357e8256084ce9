//go:build tinygo

package stage0

import "device/arm"

// SystemReset resets the Cortex-M core through the SCB.
type SystemReset struct{}

// Reset implements Resetter.
func (SystemReset) Reset() {
	arm.SystemReset()
}
