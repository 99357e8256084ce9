package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// AppInfo describes the running application firmware. It travels CBOR-encoded
// inside ControlResponse.
type AppInfo struct {
	Name    string `cbor:"1,keyasint"`
	Version string `cbor:"2,keyasint,omitempty"`
	BuildID string `cbor:"3,keyasint,omitempty"`
}

var (
	appInfoEncMode cbor.EncMode
	appInfoDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	appInfoEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create AppInfo CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	appInfoDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create AppInfo CBOR decoder mode: %v", err))
	}
}

// EncodeAppInfo encodes info deterministically.
func EncodeAppInfo(info AppInfo) ([]byte, error) {
	return appInfoEncMode.Marshal(info)
}

// DecodeAppInfo decodes the payload of a ControlResponse.
func DecodeAppInfo(data []byte) (AppInfo, error) {
	var info AppInfo
	if err := appInfoDecMode.Unmarshal(data, &info); err != nil {
		return AppInfo{}, fmt.Errorf("%w: app info: %v", ErrDeserialize, err)
	}
	return info, nil
}
