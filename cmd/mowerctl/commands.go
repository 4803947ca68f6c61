package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/mowerlink/internal/config"
	"github.com/danmuck/mowerlink/internal/observability"
	"github.com/danmuck/mowerlink/internal/protocol"
	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
)

// paramList collects repeated -param flags.
type paramList []string

func (p *paramList) String() string { return strings.Join(*p, " ") }

func (p *paramList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func runEncode(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	typeName := fs.String("type", frame.MsgData.String(), "message type name")
	msgID := fs.Uint("msg-id", 0, "payload msg id (0..255)")
	var params paramList
	fs.Var(&params, "param", "parameter as id or id:v1,v2,... (repeatable)")
	clientID := fs.Uint("client-id", 0, "override the configured client id")
	sender := fs.Uint("sender", 0, "override the configured sender device code")
	receiver := fs.Uint("receiver", 0, "override the configured receiver device code")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	mt, ok := frame.MsgTypeByName(*typeName)
	if !ok {
		return fmt.Errorf("%w: unknown message type %q", errUsage, *typeName)
	}
	if *msgID > 0xff {
		return fmt.Errorf("%w: msg-id %d out of range", errUsage, *msgID)
	}

	opts := cfg.Options()
	payloads := make([]param.Payload, 0, len(params))
	for _, spec := range params {
		p, err := parseParamSpec(opts.Registry, spec)
		if err != nil {
			return err
		}
		payloads = append(payloads, p)
	}
	msg, err := opts.NewMessage(mt, uint8(*msgID), payloads...)
	if err != nil {
		return err
	}

	overrides := []frame.VarOption{frame.WithVarValues(opts.Defaults)}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "client-id":
			if *clientID > 0xffffffff {
				flagErr = errors.Join(flagErr, fmt.Errorf("%w: client-id %d out of range", errUsage, *clientID))
			}
			overrides = append(overrides, frame.WithClientID(uint32(*clientID)))
		case "sender":
			d, err := deviceFlag("sender", *sender)
			flagErr = errors.Join(flagErr, err)
			overrides = append(overrides, frame.WithSender(d))
		case "receiver":
			d, err := deviceFlag("receiver", *receiver)
			flagErr = errors.Join(flagErr, err)
			overrides = append(overrides, frame.WithReceiver(d))
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if msg.VarHeader, err = frame.NewVarHeader(mt, overrides...); err != nil {
		return err
	}
	b, err := opts.Encode(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hex.EncodeToString(b))
	return err
}

func deviceFlag(name string, v uint) (frame.DeviceCode, error) {
	d := frame.DeviceCode(v)
	if v > 0xff || !d.Known() {
		return 0, fmt.Errorf("%w: %s 0x%x is not a known device code", errUsage, name, v)
	}
	return d, nil
}

// parseParamSpec turns "471:1,3,2,1" into a payload by writing the values in
// schema field order and decoding them through the registry.
func parseParamSpec(reg *param.Registry, spec string) (param.Payload, error) {
	idPart, valuePart, hasValues := strings.Cut(spec, ":")
	id, err := strconv.ParseUint(strings.TrimSpace(idPart), 0, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: param id %q", errUsage, idPart)
	}
	entry, ok := reg.Lookup(param.ID(id))
	if !ok {
		return nil, &param.UnsupportedError{ID: param.ID(id)}
	}

	var values []string
	if hasValues && strings.TrimSpace(valuePart) != "" {
		values = strings.Split(valuePart, ",")
	}
	fields := entry.Schema.Fields
	if entry.Schema.Kind != codec.KindStruct {
		fields = nil
	}
	if len(values) != len(fields) {
		return nil, fmt.Errorf("%w: param %s takes %d values, got %d", errUsage, entry.Name, len(fields), len(values))
	}

	w := codec.NewWriter(len(values) * 4)
	for i, f := range fields {
		if err := writeScalar(w, f, strings.TrimSpace(values[i])); err != nil {
			return nil, fmt.Errorf("%w: param %s: %v", errUsage, entry.Name, err)
		}
	}
	return entry.Decode(w.Bytes())
}

func writeScalar(w *codec.Writer, f codec.Field, raw string) error {
	bits := map[codec.Kind]int{
		codec.KindU8: 8, codec.KindU16: 16, codec.KindU32: 32, codec.KindU64: 64,
		codec.KindI8: 8, codec.KindI16: 16, codec.KindI32: 32, codec.KindI64: 64,
	}
	switch f.Type.Kind {
	case codec.KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		w.WriteBool(v)
		return nil
	case codec.KindU8, codec.KindU16, codec.KindU32, codec.KindU64:
		v, err := strconv.ParseUint(raw, 0, bits[f.Type.Kind])
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		writeUint(w, f.Type.Kind, v)
		return nil
	case codec.KindI8, codec.KindI16, codec.KindI32, codec.KindI64:
		v, err := strconv.ParseInt(raw, 0, bits[f.Type.Kind])
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		writeUint(w, f.Type.Kind-codec.KindI8+codec.KindU8, uint64(v))
		return nil
	default:
		return fmt.Errorf("%s: %s values cannot be given on the command line", f.Name, f.Type)
	}
}

func writeUint(w *codec.Writer, k codec.Kind, v uint64) {
	switch k {
	case codec.KindU8:
		w.WriteU8(uint8(v))
	case codec.KindU16:
		w.WriteU16(uint16(v))
	case codec.KindU32:
		w.WriteU32(uint32(v))
	default:
		w.WriteU64(v)
	}
}

func runDecode(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "text", "output format: text|yaml")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing hex frame", errUsage)
	}
	b, err := parseHex(strings.Join(fs.Args(), ""))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	write, ok := map[string]func(io.Writer, messageView) error{
		"text": writeText,
		"yaml": writeYAML,
	}[*format]
	if !ok {
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}
	msg, err := cfg.Options().Decode(b)
	if err != nil {
		return err
	}
	return write(out, newMessageView(msg))
}

// parseHex accepts plain hex with optional 0x prefix, whitespace, ':' or '-'
// separators.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", "\t", "", "\n", "", ":", "", "-", "").Replace(s)
	return hex.DecodeString(s)
}

// runRead decodes frames back to back from a file, or stdin for "-", until
// end of stream.
func runRead(cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	stats := fs.Bool("stats", false, "print frame counters after the stream ends")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: read takes one file argument", errUsage)
	}

	var in io.Reader = os.Stdin
	if path := fs.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	opts := cfg.Options()
	r := bufio.NewReader(in)
	for i := 0; ; i++ {
		msg, err := opts.ReadMessage(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if _, err := fmt.Fprintf(out, "# frame %d\n", i); err != nil {
			return err
		}
		if err := writeText(out, newMessageView(msg)); err != nil {
			return err
		}
	}
	if *stats {
		return writeStats(out)
	}
	return nil
}

func writeStats(out io.Writer) error {
	stats, err := observability.Stats()
	if err != nil {
		return err
	}
	for _, s := range stats {
		keys := make([]string, 0, len(s.Labels))
		for k := range s.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + s.Labels[k]
		}
		if _, err := fmt.Fprintf(out, "%s{%s} %g\n", s.Name, strings.Join(pairs, ","), s.Value); err != nil {
			return err
		}
	}
	return nil
}

func runParams(out io.Writer) error {
	reg := param.Default()
	for _, id := range reg.IDs() {
		e, _ := reg.Lookup(id)
		if _, err := fmt.Fprintf(out, "%d\t%s\t%s\n", uint16(id), e.Name, e.Schema); err != nil {
			return err
		}
	}
	return nil
}

func runConfig(cfg config.Config, out io.Writer) error {
	b, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// validationNote is empty for messages that pass protocol.Validate.
func validationNote(msg *protocol.Message) string {
	if err := protocol.Validate(msg); err != nil {
		return err.Error()
	}
	return ""
}
