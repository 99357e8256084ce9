// Package handoff passes a boot target from stage0 to its next boot across a
// warm reset.
//
// The record is two 32-bit words in RAM that the startup code never
// initialises: a magic value and the target address. Stage0 arms it and
// resets; on the next boot Boot reads and clears it in one step and, when
// armed, jumps to the target instead of starting the bootloader loop. A
// cold power cycle leaves random contents that almost never match the magic.
package handoff

import (
	"github.com/moffa90/go-stage0/memory"
)

// Magic marks an armed handoff record.
const Magic uint32 = 0x0B00_7ED0

// Cell is the persistent storage for the two handoff words.
type Cell interface {
	Load() (magic, target uint32)
	Store(magic, target uint32)
}

// Record reads and writes the handoff words.
type Record struct {
	cell Cell
}

// NewRecord creates a record over cell.
func NewRecord(cell Cell) *Record {
	if cell == nil {
		panic("handoff: cell cannot be nil")
	}
	return &Record{cell: cell}
}

// WriteHandoff arms the record so the next boot jumps to target. The target
// is not validated.
func (r *Record) WriteHandoff(target uint32) {
	memory.Fence()
	r.cell.Store(Magic, target)
	memory.Fence()
}

// ReadAndClearHandoff returns the armed target, if any, and zeroes the
// record so the jump happens at most once.
func (r *Record) ReadAndClearHandoff() (target uint32, ok bool) {
	memory.Fence()
	magic, target := r.cell.Load()
	r.cell.Store(0, 0)
	memory.Fence()

	if magic != Magic {
		return 0, false
	}
	return target, true
}

// Pending reports the armed target without clearing it.
func (r *Record) Pending() (target uint32, ok bool) {
	memory.Fence()
	magic, target := r.cell.Load()
	memory.Fence()

	if magic != Magic {
		return 0, false
	}
	return target, true
}

// Clear disarms the record.
func (r *Record) Clear() {
	memory.Fence()
	r.cell.Store(0, 0)
	memory.Fence()
}

// Jumper transfers control to an image. On hardware Jump never returns.
type Jumper interface {
	Jump(target uint32)
}

// Quiescer is implemented by jumpers that must silence interrupt sources
// the running firmware enabled before control leaves it.
type Quiescer interface {
	Quiesce()
}

// Boot must run first thing after reset. It consumes the handoff record and
// jumps to the armed target, quiescing first if j is a Quiescer. It returns true if a jump happened and
// returned, which only a simulated Jumper does; otherwise it returns false
// and the caller starts the bootloader.
func Boot(rec *Record, j Jumper) bool {
	target, ok := rec.ReadAndClearHandoff()
	if !ok {
		return false
	}
	if q, ok := j.(Quiescer); ok {
		q.Quiesce()
	}
	j.Jump(target)
	return true
}

// WordCell keeps the handoff words in ordinary memory. It survives a
// simulated warm reset as long as the owning value does.
type WordCell struct {
	magic  uint32
	target uint32
}

// Load implements Cell.
func (c *WordCell) Load() (magic, target uint32) {
	return c.magic, c.target
}

// Store implements Cell.
func (c *WordCell) Store(magic, target uint32) {
	c.magic, c.target = magic, target
}

// PowerCycle replaces the words with arbitrary contents, like a cold boot.
func (c *WordCell) PowerCycle(magic, target uint32) {
	c.Store(magic, target)
}

// JumperFunc adapts a function to Jumper.
type JumperFunc func(target uint32)

// Jump implements Jumper.
func (f JumperFunc) Jump(target uint32) {
	f(target)
}
