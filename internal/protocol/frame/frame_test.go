package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/protocol/param"
	"github.com/danmuck/mowerlink/internal/testutil/testlog"
)

func TestChecksumCheckValue(t *testing.T) {
	testlog.Start(t)
	if got := Checksum([]byte("123456789")); got != 0xBB3D {
		t.Fatalf("crc-16/arc check value: got 0x%04x", got)
	}
	if got := Checksum([]byte("1234"), []byte("56789")); got != 0xBB3D {
		t.Fatalf("split input changed crc: 0x%04x", got)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Header{Type: MsgData, PayloadLen: 0x0102}.Sealed()
	b, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(b) != HeaderLen || b[0] != SOH || b[1] != STX || b[2] != 3 || b[3] != 0x02 || b[4] != 0x01 {
		t.Fatalf("unexpected header bytes: % x", b)
	}
	if err := VerifyHeader(b); err != nil {
		t.Fatalf("verify: %v", err)
	}
	out, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != in {
		t.Fatalf("round-trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestParseHeaderUnknownTypeIsUndefined(t *testing.T) {
	testlog.Start(t)
	b := []byte{SOH, STX, 0x63, 0, 0, 0, 0}
	h, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if h.Type != MsgUndefined || h.Code != 0x63 || h.WireType() != 0x63 {
		t.Fatalf("expected undefined with code 0x63, got %s code 0x%02x", h.Type, h.Code)
	}
	sealed := h.Sealed()
	out, err := sealed.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if out[2] != 0x63 {
		t.Fatalf("re-encoded type byte 0x%02x", out[2])
	}
	if err := VerifyHeader(out); err != nil {
		t.Fatalf("verify: %v", err)
	}

	known, err := ParseHeader(headerBytes(t, Header{Type: MsgData}.Sealed()))
	if err != nil || known.Code != 0 {
		t.Fatalf("known type keeps no code: %+v %v", known, err)
	}
}

func headerBytes(t *testing.T, h Header) []byte {
	t.Helper()
	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestParseHeaderShort(t *testing.T) {
	testlog.Start(t)
	if _, err := ParseHeader([]byte{SOH, STX, 3}); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestVerifyHeaderChecksumBeforeSentinel(t *testing.T) {
	testlog.Start(t)
	b := []byte{SOH, 0x03, byte(MsgData), 0, 0}
	b = binary.LittleEndian.AppendUint16(b, Checksum(b))
	if err := VerifyHeader(b); !errors.Is(err, ErrInvalidSentinel) {
		t.Fatalf("expected ErrInvalidSentinel, got %v", err)
	}

	b[5] ^= 0xff
	err := VerifyHeader(b)
	if !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("expected ErrCorruptFrame, got %v", err)
	}
	var ce *ChecksumError
	if !errors.As(err, &ce) || ce.Region != "header" {
		t.Fatalf("expected header ChecksumError, got %#v", err)
	}
}

func TestVarHeaderSizes(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		t    MsgType
		size int
	}{
		{MsgUndefined, 0},
		{MsgConnect, 9},
		{MsgConnectAck, 1},
		{MsgData, 6},
		{MsgDisConnect, 6},
		{MsgConnectExtended, 10},
		{MsgConnectExtendedAck, 6},
		{MsgDisConnectExtended, 5},
	}
	for _, tc := range cases {
		t.Run(tc.t.String(), func(t *testing.T) {
			if got := VarHeaderSize(tc.t); got != tc.size {
				t.Fatalf("size: got %d want %d", got, tc.size)
			}
			vh, err := BuildVarHeader(tc.t, DefaultVarValues())
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if vh.Size() != tc.size || len(vh.Bytes()) != tc.size {
				t.Fatalf("built size %d, bytes %d, want %d", vh.Size(), len(vh.Bytes()), tc.size)
			}

			custom := VarValues{
				ProtocolID: 0x11, ProtocolVersion: 0x22, KeepAliveLSB: 0x33, KeepAliveMSB: 0x44,
				ClientID: 0xa1b2c3d4, Sender: DeviceBackend, Receiver: DeviceChargingStation,
				ConnectReturnCode: 0x55,
			}
			for _, v := range []VarValues{DefaultVarValues(), custom} {
				built, err := BuildVarHeader(tc.t, v)
				if err != nil {
					t.Fatalf("build: %v", err)
				}
				parsed, n, err := ParseVarHeader(tc.t, append(built.Bytes(), 0xee))
				if err != nil || n != tc.size {
					t.Fatalf("parse: n=%d err=%v", n, err)
				}
				if !parsed.Equal(built) || !bytes.Equal(parsed.Bytes(), built.Bytes()) {
					t.Fatalf("parse mismatch: got %+v want %+v", parsed.Values(), built.Values())
				}
				for _, f := range VarFieldsFor(tc.t) {
					got, err := parsed.Value(f)
					if err != nil || got != v.Get(f) {
						t.Fatalf("%s: got %d want %d (%v)", f, got, v.Get(f), err)
					}
				}
			}
		})
	}
}

func TestNewVarHeaderOverlaysDefaults(t *testing.T) {
	testlog.Start(t)
	vh, err := NewVarHeader(MsgData, WithReceiver(DeviceMobileApp))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x4F, 0x41}
	if !bytes.Equal(vh.Bytes(), want) {
		t.Fatalf("unexpected bytes: % x", vh.Bytes())
	}

	base := DefaultVarValues()
	base.ClientID = 7
	vh, err = NewVarHeader(MsgConnect, WithVarValues(base), WithKeepAlive(0x3c, 0x01), WithSender(DeviceBackend))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want = []byte{0x06, 0x02, 0x3c, 0x01, 0x07, 0x00, 0x00, 0x00, 0x42}
	if !bytes.Equal(vh.Bytes(), want) {
		t.Fatalf("unexpected connect bytes: % x", vh.Bytes())
	}

	ack, err := NewVarHeader(MsgConnectAck)
	if err != nil {
		t.Fatalf("build ack: %v", err)
	}
	if !bytes.Equal(ack.Bytes(), []byte{DefaultConnectReturnCode}) {
		t.Fatalf("ack bytes: % x", ack.Bytes())
	}
}

func TestVarHeaderDataDefaults(t *testing.T) {
	testlog.Start(t)
	vh, err := BuildVarHeader(MsgData, DefaultVarValues())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x4F, 0x4D}
	if !bytes.Equal(vh.Bytes(), want) {
		t.Fatalf("unexpected bytes: % x", vh.Bytes())
	}

	vh.Bytes()[0] = 0xff
	if vh.Bytes()[0] != 0x01 {
		t.Fatalf("Bytes exposed internal buffer")
	}

	if v, err := vh.Value(FieldSender); err != nil || DeviceCode(v) != DevicePCToMainboardUART {
		t.Fatalf("sender: %v %v", v, err)
	}
	if _, err := vh.Value(FieldProtocolID); !errors.Is(err, ErrVarHeaderField) {
		t.Fatalf("expected ErrVarHeaderField, got %v", err)
	}
}

func TestVarHeaderConnectOrder(t *testing.T) {
	testlog.Start(t)
	v := DefaultVarValues()
	v.KeepAliveLSB = 0x3c
	v.ClientID = 0x0a0b0c0d
	vh, err := BuildVarHeader(MsgConnect, v)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{0x06, 0x02, 0x3c, 0x00, 0x0d, 0x0c, 0x0b, 0x0a, 0x4F}
	if !bytes.Equal(vh.Bytes(), want) {
		t.Fatalf("unexpected bytes: % x", vh.Bytes())
	}

	parsed, n, err := ParseVarHeader(MsgConnect, append(vh.Bytes(), 0xee))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n != 9 {
		t.Fatalf("consumed %d", n)
	}
	if !parsed.Equal(vh) {
		t.Fatalf("parsed %+v != built %+v", parsed.Values(), vh.Values())
	}
	if parsed.Has(FieldReceiver) {
		t.Fatalf("connect layout has no receiver")
	}
}

func TestParseVarHeaderTruncated(t *testing.T) {
	testlog.Start(t)
	_, _, err := ParseVarHeader(MsgConnectExtended, []byte{0x06, 0x02, 0x00})
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestPayloadBodyAndDecode(t *testing.T) {
	testlog.Start(t)
	in := Payload{
		MsgID: 7,
		Params: []param.Param{
			param.New(param.GetCuttingHeightReq{}),
			param.New(param.GetCuttingHeightResp{ReturnCode: 0, DefaultCuttingHeight: 4, CurrentCuttingHeight: 5, Information: 9}),
		},
		CRC: 0xbeef,
	}
	body, err := in.Body(nil)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	want := []byte{
		0x07, 0x0c, 0x00,
		0xd6, 0x01, 0x00, 0x00,
		0xd7, 0x01, 0x04, 0x00, 0x00, 0x04, 0x05, 0x09,
	}
	if !bytes.Equal(body, want) {
		t.Fatalf("unexpected body: % x", body)
	}

	enc, err := in.Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(enc[len(enc)-2:], []byte{0xef, 0xbe}) {
		t.Fatalf("crc not appended: % x", enc)
	}

	out, err := DecodePayload(nil, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MsgID != 7 || out.UnencryptedLength != 12 || out.CRC != 0xbeef || len(out.Params) != 2 {
		t.Fatalf("unexpected payload: %+v", out)
	}
	for i := range in.Params {
		if out.Params[i] != in.Params[i] {
			t.Fatalf("param %d: got %+v want %+v", i, out.Params[i], in.Params[i])
		}
	}
}

func TestDecodePayloadPartialParamHeader(t *testing.T) {
	testlog.Start(t)
	b := []byte{0x01, 0x02, 0x00, 0xd6, 0x01, 0x00, 0x00}
	_, err := DecodePayload(nil, b)
	if !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodePayloadTooShort(t *testing.T) {
	testlog.Start(t)
	_, err := DecodePayload(nil, []byte{0x01, 0x00})
	var te *codec.TruncatedError
	if !errors.As(err, &te) || te.Need != MinPayloadLen {
		t.Fatalf("expected TruncatedError, got %v", err)
	}
}

func testFrame(t *testing.T) Frame {
	t.Helper()
	vh, err := BuildVarHeader(MsgData, DefaultVarValues())
	if err != nil {
		t.Fatalf("var header: %v", err)
	}
	p := Payload{MsgID: 1, Params: []param.Param{param.New(param.GetCuttingHeightReq{})}}
	body, err := p.Body(nil)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	payload := binary.LittleEndian.AppendUint16(body, PayloadChecksum(vh.Bytes(), body))
	return Frame{Header: Header{Type: MsgData}, VarHeader: vh.Bytes(), Payload: payload}
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := testFrame(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	for i := 0; i < 2; i++ {
		out, err := ReadFrame(&buf, DefaultLimits())
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if out.Header.Type != MsgData || int(out.Header.PayloadLen) != len(in.Payload) {
			t.Fatalf("header mismatch: %+v", out.Header)
		}
		if !bytes.Equal(out.VarHeader, in.VarHeader) || !bytes.Equal(out.Payload, in.Payload) {
			t.Fatalf("region mismatch")
		}
	}
	if _, err := ReadFrame(&buf, DefaultLimits()); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestSplitFrameTruncatedBody(t *testing.T) {
	testlog.Start(t)
	sealed, err := testFrame(t).Seal(DefaultLimits())
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := sealed.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, _, err = SplitFrame(b[:len(b)-1], DefaultLimits())
	var te *codec.TruncatedError
	if !errors.As(err, &te) || te.Missing() != 1 {
		t.Fatalf("expected 1 missing byte, got %v", err)
	}

	f, n, err := SplitFrame(append(b, 0xaa, 0xbb), DefaultLimits())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if n != len(b) || f.Len() != len(b) {
		t.Fatalf("consumed %d, frame len %d, want %d", n, f.Len(), len(b))
	}
}

func TestSplitFramePayloadChecksum(t *testing.T) {
	testlog.Start(t)
	sealed, err := testFrame(t).Seal(DefaultLimits())
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, _ := sealed.MarshalBinary()
	b[HeaderLen] ^= 0x01
	_, _, err = SplitFrame(b, DefaultLimits())
	var ce *ChecksumError
	if !errors.As(err, &ce) || ce.Region != "payload" {
		t.Fatalf("expected payload ChecksumError, got %v", err)
	}
}

func TestFrameLimits(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxPayloadBytes: 4}
	if err := WriteFrame(io.Discard, testFrame(t), limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}

	sealed, _ := testFrame(t).Seal(DefaultLimits())
	b, _ := sealed.MarshalBinary()
	if _, err := ReadFrame(bytes.NewReader(b), limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}

func TestMsgTypeCodes(t *testing.T) {
	testlog.Start(t)
	for code := 0; code < 256; code++ {
		mt := ParseMsgType(byte(code))
		switch code {
		case 0, 1, 2, 3, 14, 16, 17, 18:
			if uint8(mt) != uint8(code) {
				t.Fatalf("code %d parsed as %s", code, mt)
			}
		default:
			if mt != MsgUndefined {
				t.Fatalf("code %d should be undefined, got %s", code, mt)
			}
		}
	}
	if mt, ok := MsgTypeByName("connect_extended_ack"); !ok || mt != MsgConnectExtendedAck {
		t.Fatalf("name lookup: %s %v", mt, ok)
	}
}
