package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-stage0/bootloader"
	"github.com/moffa90/go-stage0/config"
	"github.com/moffa90/go-stage0/discovery"
	"github.com/moffa90/go-stage0/logging"
	"github.com/moffa90/go-stage0/sim"
)

// cli holds global flags and the state shared by subcommands.
type cli struct {
	configPath string
	port       string
	logLevel   string
	simulate   bool

	cfg config.Config
	log *logging.Adapter
	out io.Writer

	board *sim.Board
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "stage0-cli",
		Short:         "Load and run firmware through the stage0 bootloader",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "TOML config file")
	flags.StringVarP(&c.port, "port", "p", "", "serial port (default: discover by USB product)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	flags.BoolVar(&c.simulate, "sim", false, "talk to an in-process simulated board")
	_ = flags.MarkHidden("sim")

	root.AddCommand(
		c.peekCmd(),
		c.flashPeekCmd(),
		c.pokeCmd(),
		c.flashPokeCmd(),
		c.bootloadCmd(),
		c.rebootCmd(),
		c.clearMagicCmd(),
		c.nopCmd(),
		c.infoCmd(),
		c.stdioCmd(),
		c.runCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.out = cmd.OutOrStdout()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.port != "" {
		cfg.Port = c.port
	}
	c.cfg = cfg

	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	logging.ApplyEnv(&logCfg, os.Getenv)
	if c.logLevel != "" {
		lvl, ok := logging.ParseLevel(c.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", c.logLevel)
		}
		logCfg.Level = lvl
	}
	logCfg.Out = cmd.ErrOrStderr()
	c.log = logging.NewAdapter(logging.New(logCfg))
	return nil
}

// connect opens a link to the firmware of the wanted kind. An explicit port
// is opened as-is.
func (c *cli) connect(ctx context.Context, want discovery.Kind) (discovery.Conn, error) {
	if c.simulate {
		return c.connectSim(ctx, want)
	}
	if c.cfg.Port != "" {
		return discovery.SerialOpener(c.cfg.Baud, c.cfg.ReadTimeout)(c.cfg.Port)
	}

	connector := &discovery.Connector{
		Enum:         discovery.SerialEnumerator,
		Ident:        c.cfg.Identity(),
		Open:         discovery.SerialOpener(c.cfg.Baud, c.cfg.ReadTimeout),
		Logger:       c.log.Component("discovery"),
		PollInterval: c.cfg.PollInterval,
		RebootGrace:  c.cfg.RebootGrace,
	}
	return connector.Connect(ctx, want)
}

func (c *cli) connectSim(ctx context.Context, want discovery.Kind) (discovery.Conn, error) {
	if c.board == nil {
		layout := sim.DefaultLayout()
		layout.ScratchBase, layout.ScratchLen = c.cfg.ScratchBase, c.cfg.ScratchLen
		layout.Protected = uint32(c.cfg.FlashProtected)

		board, err := sim.NewBoard(layout, sim.WithLogger(c.log.Component("sim")))
		if err != nil {
			return nil, err
		}
		go func() { _ = board.Run(ctx) }()
		if err := board.WaitMode(ctx, sim.Bootloader); err != nil {
			return nil, err
		}
		c.board = board
	}

	connector := &discovery.Connector{
		Enum:  c.board,
		Ident: c.cfg.Identity(),
		Open: func(name string) (discovery.Conn, error) {
			conn, err := c.board.Open(name)
			if err != nil {
				return nil, err
			}
			return &sim.SerialConn{Conn: conn, ReadTimeout: c.cfg.ReadTimeout}, nil
		},
		Logger:       c.log.Component("discovery"),
		PollInterval: 5 * time.Millisecond,
		RebootGrace:  50 * time.Millisecond,
	}
	return connector.Connect(ctx, want)
}

// client connects to the bootloader and wraps the link in a Client.
func (c *cli) client(ctx context.Context, progress bool) (*bootloader.Client, io.Closer, error) {
	conn, err := c.connect(ctx, discovery.KindBootloader)
	if err != nil {
		return nil, nil, err
	}

	opts := []bootloader.Option{
		bootloader.WithLogger(c.log.Component("bootloader")),
		bootloader.WithChunkSize(c.cfg.ChunkSize),
		bootloader.WithEraseSize(c.cfg.EraseSize),
		bootloader.WithResponseTimeout(5 * time.Second),
	}
	if progress {
		opts = append(opts, bootloader.WithProgressCallback(c.printProgress))
	}
	return bootloader.New(conn, opts...), conn, nil
}

func (c *cli) printProgress(p bootloader.Progress) {
	switch p.Phase {
	case bootloader.PhaseComplete:
		fmt.Fprintf(c.out, "\rDone: %d bytes\n", p.BytesTotal)
	case bootloader.PhaseBootload:
		fmt.Fprintf(c.out, "\rBooting 0x%08X...\n", p.Address)
	default:
		fmt.Fprintf(c.out, "\r[%-10s] %5.1f%% 0x%08X", p.Phase, p.Percentage, p.Address)
	}
}
