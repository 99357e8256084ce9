package protocol

import (
	"bytes"
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []byte
	}{
		{
			name: "peek",
			req:  PeekBytes{Addr: 0x20008000, Len: 64},
			want: []byte{TagPeekBytes, 0x80, 0x80, 0x82, 0x80, 0x02, 0x40},
		},
		{
			name: "poke",
			req:  PokeBytes{Addr: 0x10, Val: Owned{0xDE, 0xAD}},
			want: []byte{TagPokeBytes, 0x10, 0x02, 0xDE, 0xAD},
		},
		{
			name: "clear magic",
			req:  ClearMagic{},
			want: []byte{TagClearMagic},
		},
		{
			name: "reboot",
			req:  Reboot{},
			want: []byte{TagReboot},
		},
		{
			name: "bootload",
			req:  Bootload{Addr: 0x300},
			want: []byte{TagBootload, 0x80, 0x06},
		},
		{
			name: "flash peek",
			req:  PeekBytesFlash{Addr: 1, Len: 2},
			want: []byte{TagPeekBytesFlash, 0x01, 0x02},
		},
		{
			name: "flash copy",
			req:  FlashCopy{RAMStart: 1, FlashStart: 2, Len: 3},
			want: []byte{TagFlashCopy, 0x01, 0x02, 0x03},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeRequest(nil, tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeRequest() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEncodeRequestNil(t *testing.T) {
	_, err := EncodeRequest(nil, nil)
	if err == nil {
		t.Fatal("expected error for nil request")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("cannot be nil")) {
		t.Errorf("error = %v, want substring %q", err, "cannot be nil")
	}
}

func TestFrameRequest(t *testing.T) {
	frame, err := FrameRequest(ClearMagic{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x00, 0x02, TagClearMagic, 0x00}
	if !bytes.Equal(frame, want) {
		t.Errorf("FrameRequest() = % X, want % X", frame, want)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{name: "empty", payload: nil, wantErr: ErrDeserialize},
		{name: "unknown tag", payload: []byte{0x07}, wantErr: ErrUnknownTag},
		{name: "truncated field", payload: []byte{TagPeekBytes, 0x80}, wantErr: ErrDeserialize},
		{name: "missing field", payload: []byte{TagPeekBytes, 0x01}, wantErr: ErrDeserialize},
		{name: "trailing bytes", payload: []byte{TagClearMagic, 0x00}, wantErr: ErrDeserialize},
		{name: "overlong tag", payload: []byte{0x80, 0x00}, wantErr: ErrDeserialize},
		{name: "byte string past end", payload: []byte{TagPokeBytes, 0x00, 0x05, 0x01}, wantErr: ErrDeserialize},
		{
			name:    "bootload address above u32",
			payload: protowire.AppendVarint([]byte{TagBootload}, 1<<32),
			wantErr: ErrDeserialize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest(tt.payload, Own)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeRequest() error = %v, want %v", err, tt.wantErr)
			}
			if req != nil {
				t.Errorf("DecodeRequest() = %#v, want nil on error", req)
			}
		})
	}
}

func TestDecodeRequestOwnership(t *testing.T) {
	payload, err := EncodeRequest(nil, PokeBytes{Addr: 4, Val: Owned{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	borrowed, err := DecodeRequest(payload, Borrow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	owned, err := DecodeRequest(payload, Own)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := borrowed.(PokeBytes).Val.(Borrowed); !ok {
		t.Errorf("Borrow decode produced %T", borrowed.(PokeBytes).Val)
	}
	if _, ok := owned.(PokeBytes).Val.(Owned); !ok {
		t.Errorf("Own decode produced %T", owned.(PokeBytes).Val)
	}

	// Mutating the source buffer is visible only through the borrowed view.
	payload[len(payload)-1] = 0xFF
	if got := borrowed.(PokeBytes).Val.Bytes()[2]; got != 0xFF {
		t.Errorf("borrowed view byte = 0x%02X, want 0xFF", got)
	}
	if got := owned.(PokeBytes).Val.Bytes()[2]; got != 0x03 {
		t.Errorf("owned view byte = 0x%02X, want 0x03", got)
	}
}
