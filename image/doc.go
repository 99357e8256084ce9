// Package image turns firmware files into loadable images for stage0.
//
// # Supported Formats
//
//   - ELF: 32-bit little-endian executables; PT_LOAD segments are flattened
//     by physical address with 0x00 between them
//   - Intel HEX: data records flattened from the lowest address with 0xFF
//     between them
//   - Raw binary: loaded as-is at an address supplied by the caller
//
// # Usage
//
//	img, err := image.Parse("app.elf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes at 0x%08X\n", len(img.Data), img.Addr)
//
// Raw binaries have no address of their own:
//
//	img, err := image.Parse("app.bin", image.WithAddress(0x20008000))
//
// Relocatable objects are rejected; the image must be linked for the
// address it will run at.
package image
