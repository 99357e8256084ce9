//go:build tinygo

package handoff

/*
#include <stdint.h>

// Placed in a section the startup code neither zeroes nor copies, so the
// words survive a warm reset.
__attribute__((section(".noinit.handoff"), used))
static volatile uint32_t handoff_words[2];

static void handoff_load(uint32_t *magic, uint32_t *target) {
    *magic = handoff_words[0];
    *target = handoff_words[1];
}

static void handoff_store(uint32_t magic, uint32_t target) {
    handoff_words[0] = magic;
    handoff_words[1] = target;
}

#define SCB_VTOR     0xE000ED08
#define SCB_ICSR     0xE000ED04
#define SYST_CSR     0xE000E010
#define NVIC_ICER0   0xE000E180
#define NVIC_ICPR0   0xE000E280
#define ICSR_PENDSTCLR (1u << 25)
#define ICSR_PENDSVCLR (1u << 27)

// The runtime has already started the clock, RTC and USB by the time main
// runs. Mask and clear every interrupt so none of them vectors into the
// image before its reset handler has set up .data and .bss.
static void handoff_quiesce(void) {
    __asm__ volatile ("cpsid i" ::: "memory");
    *(volatile uint32_t *)SYST_CSR = 0;
    for (int i = 0; i < 8; i++) {
        ((volatile uint32_t *)NVIC_ICER0)[i] = 0xFFFFFFFF;
        ((volatile uint32_t *)NVIC_ICPR0)[i] = 0xFFFFFFFF;
    }
    *(volatile uint32_t *)SCB_ICSR = ICSR_PENDSTCLR | ICSR_PENDSVCLR;
    __asm__ volatile ("dsb" ::: "memory");
    __asm__ volatile ("isb" ::: "memory");
}

// Relocate the vector table to the image, load its initial stack pointer
// and branch to its reset handler.
static void handoff_jump(uint32_t target) {
    uint32_t sp = ((volatile uint32_t *)target)[0];
    uint32_t pc = ((volatile uint32_t *)target)[1];

    __asm__ volatile ("cpsid i" ::: "memory");
    *(volatile uint32_t *)SCB_VTOR = target;
    __asm__ volatile ("dsb" ::: "memory");
    __asm__ volatile ("isb" ::: "memory");
    __asm__ volatile (
        "msr msp, %0\n"
        "cpsie i\n"
        "bx %1\n"
        : : "r" (sp), "r" (pc) : "memory");
    while (1) { }
}
*/
import "C"

// HardwareCell is the handoff record in reserved, non-initialised RAM.
type HardwareCell struct{}

// Load implements Cell.
func (HardwareCell) Load() (magic, target uint32) {
	var m, t C.uint32_t
	C.handoff_load(&m, &t)
	return uint32(m), uint32(t)
}

// Store implements Cell.
func (HardwareCell) Store(magic, target uint32) {
	C.handoff_store(C.uint32_t(magic), C.uint32_t(target))
}

// HardwareJumper boots a Cortex-M image from its vector table.
type HardwareJumper struct{}

// Quiesce implements Quiescer. Interrupts stay masked until Jump.
func (HardwareJumper) Quiesce() {
	C.handoff_quiesce()
}

// Jump implements Jumper. It does not return.
func (HardwareJumper) Jump(target uint32) {
	C.handoff_jump(C.uint32_t(target))
}
