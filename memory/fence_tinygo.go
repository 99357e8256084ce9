//go:build tinygo

package memory

/*
static inline void memory_fence(void) {
    __asm__ volatile ("dmb" ::: "memory");
}
*/
import "C"

// Fence issues a data memory barrier.
func Fence() {
	C.memory_fence()
}
