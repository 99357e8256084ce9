// Package discovery finds stage0 devices among the host's serial ports and
// connects to the firmware the caller wants.
//
// A device enumerates as a USB CDC port whose product string tells which
// firmware is running: the bootloader reports "Stage0 Loader", applications
// report a product containing "Soup App". Some hosts replace spaces with
// underscores, so products are compared in that form.
//
//	c := &discovery.Connector{
//	    Enum:  discovery.SerialEnumerator,
//	    Ident: discovery.DefaultIdentity(),
//	    Open:  discovery.SerialOpener(115200, 16*time.Millisecond),
//	}
//	port, err := c.Connect(ctx, discovery.KindBootloader)
//
// When the bootloader is wanted but an application is running, Connect asks
// the application to reboot and waits for the bootloader to enumerate.
package discovery
