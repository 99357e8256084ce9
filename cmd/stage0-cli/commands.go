package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-stage0/console"
	"github.com/moffa90/go-stage0/discovery"
	"github.com/moffa90/go-stage0/image"
)

type peekFlags struct {
	addr   string
	length int
	file   string
}

func (f *peekFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.addr, "address", "a", "", "start address (hex)")
	cmd.Flags().IntVarP(&f.length, "length", "l", 0, "number of bytes")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "write the bytes to a file instead of stdout")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("length")
}

func (c *cli) peekCmd() *cobra.Command {
	var f peekFlags
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Read scratch RAM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.peek(cmd, &f, false)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) flashPeekCmd() *cobra.Command {
	var f peekFlags
	cmd := &cobra.Command{
		Use:   "flash-peek",
		Short: "Read flash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.peek(cmd, &f, true)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) peek(cmd *cobra.Command, f *peekFlags, flash bool) error {
	addr, err := parseAddress(f.addr)
	if err != nil {
		return err
	}
	if err := checkLength(f.length); err != nil {
		return err
	}

	client, conn, err := c.client(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer conn.Close()

	var data []byte
	if flash {
		data, err = client.PeekFlash(cmd.Context(), uint(addr), f.length)
	} else {
		data, err = client.Peek(cmd.Context(), uint(addr), f.length)
	}
	if err != nil {
		return err
	}

	if f.file != "" {
		return os.WriteFile(f.file, data, 0o644)
	}
	return hexDump(c.out, data)
}

type pokeFlags struct {
	addr  string
	bytes string
	file  string
}

func (f *pokeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.addr, "address", "a", "", "start address (hex)")
	cmd.Flags().StringVarP(&f.bytes, "write", "b", "", `bytes to write, e.g. "0xA0,0xAB,0x11"`)
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "file whose contents to write")
	_ = cmd.MarkFlagRequired("address")
	cmd.MarkFlagsMutuallyExclusive("write", "file")
	cmd.MarkFlagsOneRequired("write", "file")
}

func (f *pokeFlags) data() ([]byte, error) {
	if f.file != "" {
		return os.ReadFile(f.file)
	}
	return parseBytes(f.bytes)
}

func (c *cli) pokeCmd() *cobra.Command {
	var f pokeFlags
	cmd := &cobra.Command{
		Use:   "poke",
		Short: "Write scratch RAM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(f.addr)
			if err != nil {
				return err
			}
			data, err := f.data()
			if err != nil {
				return err
			}

			client, conn, err := c.client(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := client.Poke(cmd.Context(), uint(addr), data); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Wrote %d bytes at 0x%08X\n", len(data), addr)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) flashPokeCmd() *cobra.Command {
	var f pokeFlags
	cmd := &cobra.Command{
		Use:   "flash-poke",
		Short: "Program flash through scratch RAM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(f.addr)
			if err != nil {
				return err
			}
			data, err := f.data()
			if err != nil {
				return err
			}

			client, conn, err := c.client(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := client.FlashPoke(cmd.Context(), c.cfg.Scratch(), uint(addr), data); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "\nProgrammed %d bytes at 0x%08X\n", len(data), addr)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) bootloadCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "bootload",
		Short: "Boot the image at an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseAddress(addr)
			if err != nil {
				return err
			}
			client, conn, err := c.client(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := client.Bootload(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Sent bootload command.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&addr, "address", "a", "", "image address (hex)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func (c *cli) rebootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reboot",
		Short: "Reset the device into the bootloader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := c.client(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := client.Reboot(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Sent reboot command.")
			return nil
		},
	}
}

func (c *cli) clearMagicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-magic",
		Short: "Disarm a pending application handoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := c.client(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := client.ClearMagic(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Handoff cleared.")
			return nil
		},
	}
}

func (c *cli) nopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nop",
		Short: "Connect to the bootloader and do nothing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.connect(cmd.Context(), discovery.KindBootloader)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintln(c.out, "Connected to the bootloader.")
			return nil
		},
	}
}

func (c *cli) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show what the running application reports about itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.connect(cmd.Context(), discovery.KindApplication)
			if err != nil {
				return err
			}
			defer conn.Close()

			info, err := console.RequestAppInfo(cmd.Context(), conn, 5*c.cfg.RebootGrace)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Name:     %s\n", info.Name)
			if info.Version != "" {
				fmt.Fprintf(c.out, "Version:  %s\n", info.Version)
			}
			if info.BuildID != "" {
				fmt.Fprintf(c.out, "Build ID: %s\n", info.BuildID)
			}
			return nil
		},
	}
}

func (c *cli) stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Attach the terminal to the application (Ctrl-] to quit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.connect(cmd.Context(), discovery.KindApplication)
			if err != nil {
				return err
			}
			defer conn.Close()

			restore, err := console.RawTerminal(int(os.Stdin.Fd()))
			if err != nil {
				return err
			}
			defer func() { _ = restore() }()

			fmt.Fprintln(cmd.ErrOrStderr(), "Connected. Press Ctrl-] to quit.\r")
			session := &console.Session{
				Port:   conn,
				Stdin:  cmd.InOrStdin(),
				Stdout: c.out,
				Stderr: cmd.ErrOrStderr(),
				Logger: c.log.Component("console"),
			}
			return session.Run(cmd.Context())
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run IMAGE",
		Short: "Load an ELF, Intel HEX or raw binary image and boot it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []image.Option
			if addr != "" {
				a, err := parseAddress(addr)
				if err != nil {
					return err
				}
				opts = append(opts, image.WithAddress(a))
			}
			img, err := image.Parse(args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Image: %d bytes at 0x%08X\n", len(img.Data), img.Addr)

			client, conn, err := c.client(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer conn.Close()

			return client.Run(cmd.Context(), img, c.cfg.Layout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "load address for raw binaries (hex)")
	return cmd
}
