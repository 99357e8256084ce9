// Package memory implements bounds-checked access to the stage0 scratch RAM
// and to the NOR flash behind it.
//
// Every range is validated before any byte is touched: an (addr, n) pair whose
// end wraps the address space is rejected first, then the pair must lie inside
// the region, then n must fit the caller's buffer. Rejections are reported as
// protocol device errors so the dispatcher can reply with them unchanged.
//
// Scratch copies are bracketed by memory fences so the compiler and the CPU
// cannot reorder them across the access. On hardware the fence is a dmb; on
// other targets it is an atomic read-modify-write.
package memory
