// Command stage0-cli talks to the stage0 bootloader and to applications it
// has started.
//
//	stage0-cli peek -a 0x20008000 -l 64
//	stage0-cli poke -a 0x20008000 -b 0xA0,0x01
//	stage0-cli run app.elf
//	stage0-cli stdio
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
