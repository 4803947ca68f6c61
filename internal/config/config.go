package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/mowerlink/internal/logging"
	"github.com/danmuck/mowerlink/internal/protocol"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
)

// Config is the resolved link configuration: the var header values a host
// stamps on outgoing frames, decode limits and logger setup.
type Config struct {
	ProtocolID        uint8
	ProtocolVersion   uint8
	KeepAliveLSB      uint8
	KeepAliveMSB      uint8
	ClientID          uint32
	Sender            frame.DeviceCode
	Receiver          frame.DeviceCode
	ConnectReturnCode uint8
	MaxPayloadBytes   int
	Log               LogConfig
}

type LogConfig struct {
	Level     string
	Timestamp bool
	NoColor   bool
}

// fileConfig is the on-disk shape. Integers stay wide so range errors can
// name the key.
type fileConfig struct {
	ProtocolID        int64         `toml:"protocol_id"`
	ProtocolVersion   int64         `toml:"protocol_version"`
	KeepAliveLSB      int64         `toml:"keepalive_lsb"`
	KeepAliveMSB      int64         `toml:"keepalive_msb"`
	ClientID          int64         `toml:"client_id"`
	Sender            int64         `toml:"sender"`
	Receiver          int64         `toml:"receiver"`
	ConnectReturnCode int64         `toml:"connect_return_code"`
	MaxPayloadBytes   int64         `toml:"max_payload_bytes"`
	Log               fileLogConfig `toml:"log"`
}

type fileLogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
	NoColor   bool   `toml:"no_color"`
}

func Default() Config {
	v := frame.DefaultVarValues()
	return Config{
		ProtocolID:        v.ProtocolID,
		ProtocolVersion:   v.ProtocolVersion,
		KeepAliveLSB:      v.KeepAliveLSB,
		KeepAliveMSB:      v.KeepAliveMSB,
		ClientID:          v.ClientID,
		Sender:            v.Sender,
		Receiver:          v.Receiver,
		ConnectReturnCode: v.ConnectReturnCode,
		MaxPayloadBytes:   frame.DefaultLimits().MaxPayloadBytes,
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// Load overlays the keys defined in the TOML file at path onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load link config: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return Config{}, fmt.Errorf("load link config: unknown key %q", keys[0].String())
	}

	u8 := []struct {
		key string
		dst *uint8
		src int64
	}{
		{"protocol_id", &cfg.ProtocolID, raw.ProtocolID},
		{"protocol_version", &cfg.ProtocolVersion, raw.ProtocolVersion},
		{"keepalive_lsb", &cfg.KeepAliveLSB, raw.KeepAliveLSB},
		{"keepalive_msb", &cfg.KeepAliveMSB, raw.KeepAliveMSB},
		{"connect_return_code", &cfg.ConnectReturnCode, raw.ConnectReturnCode},
	}
	for _, f := range u8 {
		if !meta.IsDefined(f.key) {
			continue
		}
		v, err := inRange(f.key, f.src, math.MaxUint8)
		if err != nil {
			return Config{}, err
		}
		*f.dst = uint8(v)
	}

	for _, f := range []struct {
		key string
		dst *frame.DeviceCode
		src int64
	}{
		{"sender", &cfg.Sender, raw.Sender},
		{"receiver", &cfg.Receiver, raw.Receiver},
	} {
		if !meta.IsDefined(f.key) {
			continue
		}
		v, err := inRange(f.key, f.src, math.MaxUint8)
		if err != nil {
			return Config{}, err
		}
		*f.dst = frame.DeviceCode(v)
	}

	if meta.IsDefined("client_id") {
		v, err := inRange("client_id", raw.ClientID, math.MaxUint32)
		if err != nil {
			return Config{}, err
		}
		cfg.ClientID = uint32(v)
	}
	if meta.IsDefined("max_payload_bytes") {
		v, err := inRange("max_payload_bytes", raw.MaxPayloadBytes, math.MaxUint16)
		if err != nil {
			return Config{}, err
		}
		cfg.MaxPayloadBytes = int(v)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func inRange(key string, v, max int64) (int64, error) {
	if v < 0 || v > max {
		return 0, fmt.Errorf("link config %s: %d out of range 0..%d", key, v, max)
	}
	return v, nil
}

func (c Config) Validate() error {
	if !c.Sender.Known() {
		return fmt.Errorf("link config sender: unknown device code 0x%02x", uint8(c.Sender))
	}
	if !c.Receiver.Known() {
		return fmt.Errorf("link config receiver: unknown device code 0x%02x", uint8(c.Receiver))
	}
	if c.MaxPayloadBytes < frame.MinPayloadLen || c.MaxPayloadBytes > math.MaxUint16 {
		return fmt.Errorf("link config max_payload_bytes: %d out of range %d..%d", c.MaxPayloadBytes, frame.MinPayloadLen, math.MaxUint16)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("link config log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// VarValues returns the var header values c stamps on outgoing frames.
func (c Config) VarValues() frame.VarValues {
	return frame.VarValues{
		ProtocolID:        c.ProtocolID,
		ProtocolVersion:   c.ProtocolVersion,
		KeepAliveLSB:      c.KeepAliveLSB,
		KeepAliveMSB:      c.KeepAliveMSB,
		ClientID:          c.ClientID,
		Sender:            c.Sender,
		Receiver:          c.Receiver,
		ConnectReturnCode: c.ConnectReturnCode,
	}
}

func (c Config) Options() protocol.Options {
	opts := protocol.DefaultOptions()
	opts.Defaults = c.VarValues()
	opts.Limits = frame.Limits{MaxPayloadBytes: c.MaxPayloadBytes}
	return opts
}

// Logging returns the runtime logger setup with c.Log applied. Env overrides
// are applied later by logging.ConfigureWith.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		cfg.Level = lvl
	}
	cfg.Timestamp = c.Log.Timestamp
	cfg.NoColor = c.Log.NoColor
	return cfg
}

func (c Config) file() fileConfig {
	return fileConfig{
		ProtocolID:        int64(c.ProtocolID),
		ProtocolVersion:   int64(c.ProtocolVersion),
		KeepAliveLSB:      int64(c.KeepAliveLSB),
		KeepAliveMSB:      int64(c.KeepAliveMSB),
		ClientID:          int64(c.ClientID),
		Sender:            int64(c.Sender),
		Receiver:          int64(c.Receiver),
		ConnectReturnCode: int64(c.ConnectReturnCode),
		MaxPayloadBytes:   int64(c.MaxPayloadBytes),
		Log: fileLogConfig{
			Level:     c.Log.Level,
			Timestamp: c.Log.Timestamp,
			NoColor:   c.Log.NoColor,
		},
	}
}
