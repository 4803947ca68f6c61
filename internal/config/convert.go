package config

import (
	"bytes"
	"fmt"
	"os"

	gotoml "github.com/pelletier/go-toml/v2"
)

// Marshal renders c as a complete config file, every key written.
func Marshal(c Config) ([]byte, error) {
	b, err := gotoml.Marshal(c.file())
	if err != nil {
		return nil, fmt.Errorf("marshal link config: %w", err)
	}
	return b, nil
}

// Check strictly parses the file at path: unknown keys and type mismatches
// fail, then the result is loaded and validated like Load.
func Check(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := gotoml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw fileConfig
	if err := dec.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return Load(path)
}
