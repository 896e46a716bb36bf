package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// errSuppressUsage is an error whose message has already fully explained
// the problem to the user, so the caller should not also dump the full
// go-flags usage text on top of it — the same convention used across the
// Decred tool family's own config.go files.
type errSuppressUsage string

func (e errSuppressUsage) Error() string { return string(e) }

// Config is fortunad's full set of startup options, parsed from the
// command line with the same [Application Options] convention used across
// the Decred tool family. There is no config-file option; every setting
// comes from a flag or its default.
type Config struct {
	HTTPListen string `long:"httplisten" default:":4040" description:"address to serve the HTTP operator surface on"`

	FilePeer string `long:"filepeer" description:"path to a local entropy device to ingest (e.g. /dev/urandom); empty disables it"`

	TCPPeer string `long:"tcppeer" description:"host of a remote entropy peer to dial; empty disables it"`
	TCPPort uint16 `long:"tcpport" default:"0" description:"port of the remote entropy peer"`
	TCPTLS  bool   `long:"tcptls" description:"use TLS when dialing the remote entropy peer"`

	HeartbeatByte     byte          `long:"heartbeatbyte" default:"0" description:"single byte written to the TCP peer on each heartbeat"`
	HeartbeatInterval time.Duration `long:"heartbeatinterval" default:"0s" description:"interval between heartbeat writes; 0 disables the heartbeat"`

	LogDir   string `long:"logdir" default:"./logs" description:"directory for the rotating log file"`
	LogLevel string `long:"loglevel" default:"info" description:"logging level: trace, debug, info, warn, error, critical"`
}

// loadConfig parses the command line into a Config, applying the
// cross-field validation that a flag-by-flag default can't express. No
// INI config file is read.
func loadConfig() (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig applies the cross-field checks a flag-by-flag default
// can't express. Split out from loadConfig so it can be exercised without
// going through the command-line parser.
func validateConfig(cfg *Config) error {
	if cfg.TCPTLS && cfg.TCPPeer == "" {
		return errSuppressUsage("--tcptls requires --tcppeer")
	}
	if cfg.TCPPeer != "" && cfg.TCPPort == 0 {
		return errSuppressUsage("--tcppeer requires a non-zero --tcpport")
	}
	if cfg.HeartbeatInterval < 0 {
		return errSuppressUsage("--heartbeatinterval must not be negative")
	}
	return nil
}
