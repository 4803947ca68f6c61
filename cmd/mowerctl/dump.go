package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/mowerlink/internal/protocol"
	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
	"gopkg.in/yaml.v3"
)

type messageView struct {
	Type       string      `yaml:"type"`
	PayloadLen uint16      `yaml:"payload_len"`
	HeaderCRC  string      `yaml:"header_crc"`
	VarHeader  []fieldView `yaml:"var_header,omitempty"`
	MsgID      uint8       `yaml:"msg_id"`
	ParamBytes uint16      `yaml:"param_bytes"`
	Params     []paramView `yaml:"params,omitempty"`
	PayloadCRC string      `yaml:"payload_crc"`
	Body       string      `yaml:"body,omitempty"`
	Invalid    string      `yaml:"invalid,omitempty"`
}

type fieldView struct {
	Name  string `yaml:"name"`
	Value uint32 `yaml:"value"`
	Note  string `yaml:"note,omitempty"`
}

type paramView struct {
	ID    uint16 `yaml:"id"`
	Name  string `yaml:"name"`
	Value any    `yaml:"value,omitempty"`
}

func newMessageView(msg *protocol.Message) messageView {
	v := messageView{
		Type:       msg.Header.Type.String(),
		PayloadLen: msg.Header.PayloadLen,
		HeaderCRC:  fmt.Sprintf("0x%04x", msg.Header.CRC),
		MsgID:      msg.Payload.MsgID,
		ParamBytes: msg.Payload.UnencryptedLength,
		PayloadCRC: fmt.Sprintf("0x%04x", msg.Payload.CRC),
		Invalid:    validationNote(msg),
	}
	if msg.Header.Type == frame.MsgUndefined {
		v.Type = fmt.Sprintf("%s (0x%02x)", v.Type, msg.Header.WireType())
	}
	for _, f := range frame.VarFieldsFor(msg.Header.Type) {
		value, err := msg.VarHeader.Value(f)
		if err != nil {
			continue
		}
		fv := fieldView{Name: f.String(), Value: value}
		if f == frame.FieldSender || f == frame.FieldReceiver {
			fv.Note = frame.DeviceCode(value).String()
		}
		v.VarHeader = append(v.VarHeader, fv)
	}
	for _, p := range msg.Payload.Params {
		pv := paramView{ID: uint16(p.ID), Name: p.ID.String()}
		if e, ok := param.Default().Lookup(p.ID); !ok || e.Schema.Kind != codec.KindUnit {
			pv.Value = p.Payload
		}
		v.Params = append(v.Params, pv)
	}
	if len(msg.Body) > 0 {
		v.Body = hex.EncodeToString(msg.Body)
	}
	return v
}

func writeText(out io.Writer, v messageView) error {
	var b strings.Builder
	fmt.Fprintf(&b, "type         %s\n", v.Type)
	fmt.Fprintf(&b, "payload_len  %d\n", v.PayloadLen)
	fmt.Fprintf(&b, "header_crc   %s\n", v.HeaderCRC)
	for _, f := range v.VarHeader {
		if f.Note != "" {
			fmt.Fprintf(&b, "  %-20s 0x%02x (%s)\n", f.Name, f.Value, f.Note)
			continue
		}
		fmt.Fprintf(&b, "  %-20s %d\n", f.Name, f.Value)
	}
	fmt.Fprintf(&b, "msg_id       %d\n", v.MsgID)
	fmt.Fprintf(&b, "param_bytes  %d\n", v.ParamBytes)
	for _, p := range v.Params {
		if p.Value == nil {
			fmt.Fprintf(&b, "  param %d %s\n", p.ID, p.Name)
			continue
		}
		fmt.Fprintf(&b, "  param %d %s %+v\n", p.ID, p.Name, p.Value)
	}
	fmt.Fprintf(&b, "payload_crc  %s\n", v.PayloadCRC)
	if v.Body != "" {
		fmt.Fprintf(&b, "body         %s\n", v.Body)
	}
	if v.Invalid != "" {
		fmt.Fprintf(&b, "invalid      %s\n", v.Invalid)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func writeYAML(out io.Writer, v messageView) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
