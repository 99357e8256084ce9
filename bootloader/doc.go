// Package bootloader provides a host-side client for the stage0 bootloader.
//
// # Overview
//
// The client talks the stage0 request/reply protocol over any byte stream:
//   - Reading scratch RAM and flash in bounded chunks
//   - Writing scratch RAM one acknowledged chunk at a time
//   - Programming flash by staging data through scratch RAM
//   - Arming the handoff and rebooting into an application
//
// # Basic Usage
//
// Load an image into RAM and start it:
//
//	port, err := serial.Open("/dev/ttyACM0", &serial.Mode{BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	port.SetReadTimeout(16 * time.Millisecond)
//
//	img, err := image.Parse("app.elf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := bootloader.New(port)
//	err = client.Run(ctx, img, bootloader.Layout{
//	    Scratch: memory.Region{Base: 0x20008000, Len: 0x38000},
//	    Flash:   memory.Region{Base: 0x10000, Len: 0xF0000},
//	})
//
// # Progress Tracking
//
// Track transfer progress with a callback:
//
//	client := bootloader.New(port,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - 0x%08X (%d/%d)\n",
//	            p.Phase, p.Percentage, p.Address, p.BytesDone, p.BytesTotal)
//	    }),
//	)
//
// # Reply Matching
//
// Requests are strictly sequential. Every reply that echoes an address is
// matched against the request that is outstanding; stray or stale replies
// are logged and dropped, and framing garbage is skipped until the next
// delimiter. Errors reported by the device come back as the typed errors
// from the protocol package:
//
//	_, err := client.Peek(ctx, 0x0, 4)
//	var oor *protocol.AddressOutOfRangeError
//	if errors.As(err, &oor) {
//	    fmt.Printf("valid range is 0x%08X..0x%08X\n", oor.Min, oor.Max)
//	}
//
// # Context Support
//
// All operations take a context. A response timeout can be layered on top
// with WithResponseTimeout; by default the client waits forever.
//
// # Hardware Independence
//
// The client needs only an io.ReadWriter. Reads returning (0, nil) or a
// timeout error are treated as "no data yet", which matches how
// go.bug.st/serial behaves with a read timeout set. The sim package provides
// an in-process board for tests.
package bootloader
