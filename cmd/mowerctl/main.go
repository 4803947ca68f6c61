package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/mowerlink/internal/config"
	"github.com/danmuck/mowerlink/internal/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const usage = `usage: mowerctl [-config path] [-env path] <command> [flags]

commands:
  encode   build a frame and print it as hex
  decode   decode a hex frame
  read     decode a stream of concatenated binary frames
  params   list registered parameter ids
  config   print the effective link config
`

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mowerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "link config TOML (defaults when empty)")
	envPath := fs.String("env", ".env", "dotenv file loaded before logging is configured")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	loadDotenv(*envPath)
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "mowerctl: %v\n", err)
		return 1
	}
	logging.ConfigureWith(cfg.Logging())

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var cmdErr error
	switch rest[0] {
	case "encode":
		cmdErr = runEncode(cfg, rest[1:], stdout)
	case "decode":
		cmdErr = runDecode(cfg, rest[1:], stdout)
	case "read":
		cmdErr = runRead(cfg, rest[1:], stdout)
	case "params":
		cmdErr = runParams(stdout)
	case "config":
		cmdErr = runConfig(cfg, stdout)
	default:
		fmt.Fprintf(stderr, "mowerctl: unknown command %q\n%s", rest[0], usage)
		return 2
	}
	if cmdErr != nil {
		if errors.Is(cmdErr, errUsage) || errors.Is(cmdErr, flag.ErrHelp) {
			fmt.Fprintf(stderr, "mowerctl %s: %v\n", rest[0], cmdErr)
			return 2
		}
		log.Debug().Err(cmdErr).Str("command", rest[0]).Msg("mowerctl failed")
		fmt.Fprintf(stderr, "mowerctl %s: %v\n", rest[0], cmdErr)
		return 1
	}
	return 0
}

// loadDotenv loads path into the process env without overriding variables
// that are already set. A missing file is not an error.
func loadDotenv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "mowerctl: load %s: %v\n", path, err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
