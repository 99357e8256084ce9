// Package config loads host tool settings from a TOML file and the
// environment.
//
// Example stage0.toml:
//
//	port = "/dev/ttyACM0"
//	baud = 115200
//	read_timeout = "16ms"
//	chunk_size = 256
//	serial_number = "E66038B7"
//	scratch_base = 0x20008000
//	scratch_len = 0x38000
//	flash_protected = 0x10000
//
// Keys left out of the file keep their defaults. STAGE0_PORT, STAGE0_BAUD
// and STAGE0_SERIAL override the file.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/moffa90/go-stage0/bootloader"
	"github.com/moffa90/go-stage0/discovery"
	"github.com/moffa90/go-stage0/memory"
)

const (
	EnvPort   = "STAGE0_PORT"
	EnvBaud   = "STAGE0_BAUD"
	EnvSerial = "STAGE0_SERIAL"
)

// Config holds the host tool settings.
type Config struct {
	// Port is a serial port name; empty means discover the device by USB
	// product string
	Port string

	Baud         int
	ReadTimeout  time.Duration
	PollInterval time.Duration
	RebootGrace  time.Duration
	ChunkSize    int

	BootloaderProduct  string
	ApplicationProduct string
	SerialNumber       string

	ScratchBase    uint
	ScratchLen     uint
	FlashSize      uint
	FlashProtected uint
	EraseSize      int
}

type fileConfig struct {
	Port               string `toml:"port"`
	Baud               int    `toml:"baud"`
	ReadTimeout        string `toml:"read_timeout"`
	PollInterval       string `toml:"poll_interval"`
	RebootGrace        string `toml:"reboot_grace"`
	ChunkSize          int    `toml:"chunk_size"`
	BootloaderProduct  string `toml:"bootloader_product"`
	ApplicationProduct string `toml:"application_product"`
	SerialNumber       string `toml:"serial_number"`
	ScratchBase        uint64 `toml:"scratch_base"`
	ScratchLen         uint64 `toml:"scratch_len"`
	FlashSize          uint64 `toml:"flash_size"`
	FlashProtected     uint64 `toml:"flash_protected"`
	EraseSize          int    `toml:"erase_size"`
}

// Default returns the settings for an nRF52840 running stage0.
func Default() Config {
	ident := discovery.DefaultIdentity()
	return Config{
		Baud:               115200,
		ReadTimeout:        16 * time.Millisecond,
		PollInterval:       discovery.DefaultPollInterval,
		RebootGrace:        discovery.DefaultRebootGrace,
		ChunkSize:          256,
		BootloaderProduct:  ident.BootloaderProduct,
		ApplicationProduct: ident.ApplicationProduct,
		ScratchBase:        0x20008000,
		ScratchLen:         0x38000,
		FlashSize:          0x100000,
		FlashProtected:     0x10000,
		EraseSize:          4096,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = loadFile(path, cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg Config) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"reboot_grace", raw.RebootGrace, &cfg.RebootGrace},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("bootloader_product") {
		cfg.BootloaderProduct = strings.TrimSpace(raw.BootloaderProduct)
	}
	if meta.IsDefined("application_product") {
		cfg.ApplicationProduct = strings.TrimSpace(raw.ApplicationProduct)
	}
	if meta.IsDefined("serial_number") {
		cfg.SerialNumber = strings.TrimSpace(raw.SerialNumber)
	}
	addrs := []struct {
		key string
		raw uint64
		dst *uint
	}{
		{"scratch_base", raw.ScratchBase, &cfg.ScratchBase},
		{"scratch_len", raw.ScratchLen, &cfg.ScratchLen},
		{"flash_size", raw.FlashSize, &cfg.FlashSize},
		{"flash_protected", raw.FlashProtected, &cfg.FlashProtected},
	}
	for _, a := range addrs {
		if !meta.IsDefined(a.key) {
			continue
		}
		if a.raw > math.MaxUint {
			return Config{}, fmt.Errorf("%s 0x%X does not fit an address", a.key, a.raw)
		}
		*a.dst = uint(a.raw)
	}
	if meta.IsDefined("erase_size") {
		cfg.EraseSize = raw.EraseSize
	}
	return cfg, nil
}

// ApplyEnv overrides the port, baud rate and serial number from the
// environment read by getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(getenv(EnvBaud)); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvBaud, err)
		}
		c.Baud = baud
	}
	if v := strings.TrimSpace(getenv(EnvSerial)); v != "" {
		c.SerialNumber = v
	}
	return nil
}

// Validate rejects settings the tools cannot work with.
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.ChunkSize < 1 || c.ChunkSize > bootloader.MaxChunkSize {
		return fmt.Errorf("chunk_size must be 1..%d, got %d", bootloader.MaxChunkSize, c.ChunkSize)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.ScratchLen == 0 {
		return fmt.Errorf("scratch_len must not be zero")
	}
	if !c.Scratch().Valid() {
		return fmt.Errorf("scratch region 0x%X+0x%X wraps the address space", c.ScratchBase, c.ScratchLen)
	}
	if c.EraseSize <= 0 {
		return fmt.Errorf("erase_size must be positive, got %d", c.EraseSize)
	}
	if c.FlashProtected > c.FlashSize {
		return fmt.Errorf("flash_protected 0x%X is past flash_size 0x%X", c.FlashProtected, c.FlashSize)
	}
	if c.FlashProtected%uint(c.EraseSize) != 0 {
		return fmt.Errorf("flash_protected 0x%X not aligned to erase_size %d", c.FlashProtected, c.EraseSize)
	}
	if c.BootloaderProduct == "" && c.ApplicationProduct == "" {
		return fmt.Errorf("at least one of bootloader_product and application_product is required")
	}
	return nil
}

// Scratch returns the device scratch RAM window.
func (c Config) Scratch() memory.Region {
	return memory.Region{Base: c.ScratchBase, Len: c.ScratchLen}
}

// Layout returns where images may be loaded.
func (c Config) Layout() bootloader.Layout {
	return bootloader.Layout{
		Scratch: c.Scratch(),
		Flash:   memory.Region{Base: c.FlashProtected, Len: c.FlashSize - c.FlashProtected},
	}
}

// Identity returns the USB identity used for discovery.
func (c Config) Identity() discovery.Identity {
	return discovery.Identity{
		BootloaderProduct:  c.BootloaderProduct,
		ApplicationProduct: c.ApplicationProduct,
		SerialNumber:       c.SerialNumber,
	}
}
