package discovery

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Kind is the firmware running behind a port.
type Kind int

const (
	KindBootloader Kind = iota
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindBootloader:
		return "bootloader"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrNoneFound indicates no port matched the identity.
	ErrNoneFound = errors.New("discovery: no device found")

	// ErrNoApplication indicates the bootloader is running where an
	// application was wanted.
	ErrNoApplication = errors.New("discovery: no application found, load one with the bootloader first")
)

// TooManyFoundError indicates more than one port matched the identity.
type TooManyFoundError struct {
	Ports []string
}

func (e *TooManyFoundError) Error() string {
	return fmt.Sprintf("discovery: too many devices found: %s", strings.Join(e.Ports, ", "))
}

// Enumerator lists serial ports.
type Enumerator interface {
	Ports() ([]*enumerator.PortDetails, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func() ([]*enumerator.PortDetails, error)

// Ports implements Enumerator.
func (f EnumeratorFunc) Ports() ([]*enumerator.PortDetails, error) {
	return f()
}

// SerialEnumerator lists the host's real serial ports.
var SerialEnumerator Enumerator = EnumeratorFunc(enumerator.GetDetailedPortsList)

// Identity describes which USB ports belong to a device.
type Identity struct {
	// BootloaderProduct must equal the normalised product string
	BootloaderProduct string

	// ApplicationProduct must be contained in the normalised product string
	ApplicationProduct string

	// SerialNumber, when set, must equal the port's serial number
	SerialNumber string
}

// DefaultIdentity matches any stage0 board.
func DefaultIdentity() Identity {
	return Identity{
		BootloaderProduct:  "Stage0_Loader",
		ApplicationProduct: "Soup_App",
	}
}

// Classify reports which firmware d belongs to, if any.
func (id Identity) Classify(d *enumerator.PortDetails) (Kind, bool) {
	if d == nil || !d.IsUSB {
		return 0, false
	}
	if id.SerialNumber != "" && d.SerialNumber != id.SerialNumber {
		return 0, false
	}

	product := normalize(d.Product)
	switch {
	case id.BootloaderProduct != "" && product == normalize(id.BootloaderProduct):
		return KindBootloader, true
	case id.ApplicationProduct != "" && strings.Contains(product, normalize(id.ApplicationProduct)):
		return KindApplication, true
	default:
		return 0, false
	}
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// Port is a serial port that matched an Identity.
type Port struct {
	Name         string
	Kind         Kind
	Product      string
	SerialNumber string
}

// Find returns the single port matching id. It refuses to guess when several
// ports match.
func Find(enum Enumerator, id Identity) (Port, error) {
	details, err := enum.Ports()
	if err != nil {
		return Port{}, fmt.Errorf("list ports: %w", err)
	}

	var found []Port
	for _, d := range details {
		kind, ok := id.Classify(d)
		if !ok {
			continue
		}
		found = append(found, Port{
			Name:         d.Name,
			Kind:         kind,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
		})
	}

	switch len(found) {
	case 0:
		return Port{}, ErrNoneFound
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, p := range found {
			names[i] = p.Name
		}
		return Port{}, &TooManyFoundError{Ports: names}
	}
}
