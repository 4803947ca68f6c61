package param

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/testutil/testlog"
)

func TestParam471RoundTrip(t *testing.T) {
	testlog.Start(t)
	in := New(GetCuttingHeightResp{
		ReturnCode:           1,
		CurrentCuttingHeight: 2,
		DefaultCuttingHeight: 3,
		Information:          1,
	})

	b, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if binary.LittleEndian.Uint16(b[0:2]) != 471 {
		t.Fatalf("unexpected id prefix: %x", b[0:2])
	}
	if binary.LittleEndian.Uint16(b[2:4]) != 4 {
		t.Fatalf("unexpected length prefix: %x", b[2:4])
	}
	if !bytes.Equal(b[4:], []byte{1, 3, 2, 1}) {
		t.Fatalf("unexpected data: %v", b[4:])
	}

	out, n, err := Decode(Default(), b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(b) {
		t.Fatalf("consumed %d of %d", n, len(b))
	}
	if out != in {
		t.Fatalf("round-trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestParam470IsEmpty(t *testing.T) {
	testlog.Start(t)
	b, err := New(GetCuttingHeightReq{}).MarshalBinary()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0xd6, 0x01, 0x00, 0x00}) {
		t.Fatalf("unexpected bytes: %x", b)
	}
	out, _, err := Decode(Default(), b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out.Payload.(GetCuttingHeightReq); !ok {
		t.Fatalf("unexpected payload %T", out.Payload)
	}
}

func TestDecodeUnsupportedID(t *testing.T) {
	testlog.Start(t)
	b := []byte{0xe7, 0x03, 0x01, 0x00, 0xaa} // id 999, len 1
	p, _, err := Decode(Default(), b)
	if !errors.Is(err, ErrUnsupportedParam) {
		t.Fatalf("expected ErrUnsupportedParam, got %v", err)
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.ID != 999 {
		t.Fatalf("expected UnsupportedError for 999, got %v", err)
	}
	if p.Payload != nil {
		t.Fatalf("unsupported id must not yield a payload: %+v", p)
	}
}

func TestDecodeDeclaredLengthOverrun(t *testing.T) {
	testlog.Start(t)
	b := []byte{0xd7, 0x01, 0x06, 0x00, 1, 2, 3, 4} // len 6, only 4 bytes
	_, _, err := Decode(Default(), b)
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	var te *codec.TruncatedError
	if !errors.As(err, &te) || te.Missing() != 2 {
		t.Fatalf("expected 2 missing bytes, got %v", err)
	}
}

func TestDecodeShortRecordForKnownID(t *testing.T) {
	testlog.Start(t)
	b := []byte{0xd7, 0x01, 0x02, 0x00, 1, 2}
	_, _, err := Decode(Default(), b)
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeEmptyParamWithData(t *testing.T) {
	testlog.Start(t)
	b := []byte{0xd6, 0x01, 0x01, 0x00, 9}
	_, _, err := Decode(Default(), b)
	if !errors.Is(err, codec.ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestEncodeMismatchedID(t *testing.T) {
	testlog.Start(t)
	p := Param{ID: IDGetCuttingHeightReq, Payload: GetCuttingHeightResp{}}
	if _, err := p.MarshalBinary(); !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}
}

type firmwareVersion struct {
	Major uint8
	Minor uint8
	Build *uint16
	Tag   string
}

func (firmwareVersion) ParamID() ID { return 900 }

func TestCustomRegistryEntry(t *testing.T) {
	testlog.Start(t)
	schema := codec.Struct("FirmwareVersion",
		codec.F("major", codec.U8()),
		codec.F("minor", codec.U8()),
		codec.F("build", codec.Option(codec.U16())),
		codec.F("tag", codec.String()),
	)
	reg, err := NewRegistry(Record[firmwareVersion](900, "firmware version", schema))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	build := uint16(12)
	in := New(firmwareVersion{Major: 1, Minor: 4, Build: &build, Tag: "rc"})
	b, err := in.Encode(reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, _, err := Decode(reg, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := out.Payload.(firmwareVersion)
	if got.Major != 1 || got.Minor != 4 || got.Build == nil || *got.Build != 12 || got.Tag != "rc" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	if _, _, err := Decode(Default(), b); !errors.Is(err, ErrUnsupportedParam) {
		t.Fatalf("default registry must not know 900: %v", err)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	testlog.Start(t)
	_, err := NewRegistry(
		Empty[GetCuttingHeightReq](IDGetCuttingHeightReq, "a"),
		Empty[GetCuttingHeightReq](IDGetCuttingHeightReq, "b"),
	)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	testlog.Start(t)
	ids := Default().IDs()
	if len(ids) != 2 || ids[0] != IDGetCuttingHeightReq || ids[1] != IDGetCuttingHeightResp {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if IDGetCuttingHeightResp.String() != "get cutting height response" {
		t.Fatalf("unexpected name: %q", IDGetCuttingHeightResp.String())
	}
	if ID(5).String() != "param(5)" {
		t.Fatalf("unexpected name: %q", ID(5).String())
	}
}
