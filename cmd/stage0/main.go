//go:build tinygo

// Command stage0 is the resident bootloader firmware. It honours a pending
// handoff before anything else runs, then serves the stage0 protocol over
// the USB serial port until the host asks for a reset.
//
// Build with -scheduler=tasks.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/moffa90/go-stage0/handoff"
	"github.com/moffa90/go-stage0/memory"
	"github.com/moffa90/go-stage0/stage0"
)

// RAM the host may read and write. The bootloader's own stack and data sit
// below scratchBase.
const (
	scratchBase = 0x20008000
	scratchLen  = 0x38000

	// Offsets into machine.Flash that host writes never reach.
	protectedFlash = 0x10000
)

const pollTime = 5 * time.Millisecond

func main() {
	// TinyGo's runtime init has already run; HardwareJumper quiesces the
	// interrupts it enabled before branching.
	record := handoff.NewRecord(handoff.HardwareCell{})
	handoff.Boot(record, handoff.HardwareJumper{})

	scratch := memory.NewScratch(memory.Region{Base: scratchBase, Len: scratchLen}, memory.Physical{})
	flash, err := memory.NewFlashArea(memory.NewBlockFlash(machine.Flash), protectedFlash)
	if err != nil {
		fatal()
	}

	dev := stage0.New(scratch, flash, record, stage0.SystemReset{},
		stage0.WithHeartbeat(heartbeat()),
	)

	port := usbPort{machine.Serial}
	for {
		// Serve returns only when the port fails; SystemReset never returns.
		// println shares the USB port with the protocol, so failures stay
		// silent and the host simply reconnects.
		dev.Serve(context.Background(), port)
		time.Sleep(100 * time.Millisecond)
	}
}

// usbPort drains whatever the CDC endpoint has queued and yields to other
// tasks while it is empty.
type usbPort struct {
	machine.Serialer
}

func (p usbPort) Read(b []byte) (int, error) {
	for p.Buffered() == 0 {
		time.Sleep(pollTime)
	}
	n := 0
	for n < len(b) && p.Buffered() > 0 {
		c, err := p.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

// heartbeat toggles the on-board LED from the housekeeping tick.
func heartbeat() func() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	on := false
	return func() {
		on = !on
		led.Set(on)
	}
}

// fatal gives a debugger a few seconds to attach, then resets.
func fatal() {
	for i := 0; i < 5; i++ {
		time.Sleep(time.Second)
	}
	stage0.SystemReset{}.Reset()
}
