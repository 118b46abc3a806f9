// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/breezestudio/goahead/config"
	"github.com/breezestudio/goahead/internal/core"
	"github.com/breezestudio/goahead/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X github.com/breezestudio/goahead/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives --version, --help and --dry-run output.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// overlays copies one flag's value from the parsed flags onto the
// effective config.  Only flags given on the command line are copied,
// so they win over the file and the environment without resetting
// what those set.
var overlays = map[string]func(dst, src *config.Config){ //nolint:gochecknoglobals
	"host":              func(d, s *config.Config) { d.Host = s.Host },
	"port":              func(d, s *config.Config) { d.Port = s.Port },
	"network":           func(d, s *config.Config) { d.Network = s.Network },
	"security":          func(d, s *config.Config) { d.Security = s.Security },
	"cert":              func(d, s *config.Config) { d.CertFile = s.CertFile },
	"key":               func(d, s *config.Config) { d.KeyFile = s.KeyFile },
	"host-key":          func(d, s *config.Config) { d.HostKeyFile = s.HostKeyFile },
	"ssh-password":      func(d, s *config.Config) { d.SSHPassword = s.SSHPassword },
	"prompt-passphrase": func(d, s *config.Config) { d.PromptPassphrase = s.PromptPassphrase },
	"handshake-timeout": func(d, s *config.Config) { d.HandshakeTimeout = s.HandshakeTimeout },
	"idle-timeout":      func(d, s *config.Config) { d.IdleTimeout = s.IdleTimeout },
	"breaker-failures":  func(d, s *config.Config) { d.BreakerFailures = s.BreakerFailures },
	"breaker-reset":     func(d, s *config.Config) { d.BreakerReset = s.BreakerReset },
	"metrics-interval":  func(d, s *config.Config) { d.MetricsInterval = s.MetricsInterval },
	"connect":           func(d, s *config.Config) { d.Connect = s.Connect },
	"insecure":          func(d, s *config.Config) { d.Insecure = s.Insecure },
	"echo":              func(d, s *config.Config) { d.Echo = s.Echo },
	"verbose":           func(d, s *config.Config) { d.Verbose = s.Verbose },
}

// Execute parses args and runs the selected goahead mode.
func Execute(ctx context.Context, args []string) error {
	cfg, opts, err := parse(args)
	if err != nil || cfg == nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.dryRun {
		printConfig(cfg)
		return nil
	}

	level := 1 + cfg.Verbose
	if opts.quiet {
		level = 0
	}
	logger := util.NewLogger(level)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

type runOptions struct {
	dryRun bool
	quiet  bool
}

// parse returns the effective configuration: defaults, then the INI
// file, then GOAHEAD_* variables, then the flags that were given.  A nil
// config with a nil error means the invocation was fully handled
// (help or version).
func parse(args []string) (*config.Config, runOptions, error) {
	var opts runOptions
	fl := config.Default()
	fs := flag.NewFlagSet("goahead", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// ── listener ─────────────────────────────────────────────────
	fs.StringVar(&fl.Host, "host", fl.Host, "Address to listen on")
	fs.IntVarP(&fl.Port, "port", "p", fl.Port, "Port to listen on (0 picks a free one)")
	fs.StringVarP(&fl.Network, "network", "n", fl.Network, "Transport: tcp or kcp")

	// ── secure session ───────────────────────────────────────────
	fs.StringVarP(&fl.Security, "security", "s", fl.Security, "Session protocol: tls, ssh or none")
	fs.StringVar(&fl.CertFile, "cert", "", "TLS certificate chain (PEM)")
	fs.StringVar(&fl.KeyFile, "key", "", "TLS private key (PEM)")
	fs.StringVar(&fl.HostKeyFile, "host-key", "", "SSH host key")
	fs.StringVar(&fl.SSHPassword, "ssh-password", "", "Password SSH clients must present")
	fs.BoolVar(&fl.PromptPassphrase, "prompt-passphrase", false, "Ask for the host key passphrase on the terminal")

	// ── limits ───────────────────────────────────────────────────
	fs.DurationVar(&fl.HandshakeTimeout, "handshake-timeout", fl.HandshakeTimeout, "Drop clients that have not finished the handshake")
	fs.DurationVar(&fl.IdleTimeout, "idle-timeout", fl.IdleTimeout, "Drop clients that send nothing for this long (0 = never)")
	fs.IntVar(&fl.BreakerFailures, "breaker-failures", fl.BreakerFailures, "Failed handshakes in a row that pause accepting (0 = off)")
	fs.DurationVar(&fl.BreakerReset, "breaker-reset", fl.BreakerReset, "How long accepting stays paused")
	fs.DurationVar(&fl.MetricsInterval, "metrics-interval", 0, "Log a metrics snapshot this often (needs -v)")

	// ── client ───────────────────────────────────────────────────
	fs.StringVarP(&fl.Connect, "connect", "c", "", "Dial host:port instead of listening")
	fs.BoolVarP(&fl.Insecure, "insecure", "k", false, "Skip certificate verification with --connect")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVarP(&fl.Echo, "echo", "e", false, "Send every line back to its client")
	fs.CountVarP(&fl.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Only log errors")
	fs.StringVarP(&fl.ConfigFile, "config", "f", "", "INI configuration file (or GOAHEAD_CONFIG)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Print the effective configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil, opts, nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "goahead %s\n", version)
		return nil, opts, nil
	}
	if fs.NArg() > 0 {
		return nil, opts, fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	// ── layer the sources ────────────────────────────────────────
	cfg := config.Default()
	cfg.ConfigFile = fl.ConfigFile
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = os.Getenv("GOAHEAD_CONFIG")
	}
	if cfg.ConfigFile != "" {
		if err := config.LoadFile(cfg.ConfigFile, cfg); err != nil {
			return nil, opts, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overlays[f.Name]; ok {
			apply(cfg, fl)
		}
	})
	return cfg, opts, nil
}

func printConfig(cfg *config.Config) {
	if cfg.ListenMode() {
		fmt.Fprintf(stdout, "mode:              listen\n")
		fmt.Fprintf(stdout, "address:           %s (%s)\n", cfg.Address(), cfg.Network)
	} else {
		fmt.Fprintf(stdout, "mode:              connect\n")
		fmt.Fprintf(stdout, "address:           %s (%s)\n", cfg.Connect, cfg.Network)
	}
	fmt.Fprintf(stdout, "security:          %s\n", cfg.Security)
	fmt.Fprintf(stdout, "handshake timeout: %v\n", cfg.HandshakeTimeout)
	fmt.Fprintf(stdout, "idle timeout:      %v\n", cfg.IdleTimeout)
	fmt.Fprintf(stdout, "breaker:           %d failures, %v pause\n", cfg.BreakerFailures, cfg.BreakerReset)
	fmt.Fprintf(stdout, "echo:              %v\n", cfg.Echo)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stdout, `goahead %s

A line-oriented server over TLS, SSH or plaintext.

Usage:
  goahead [options]                           Listen (default)
  goahead --connect host:port [options]       Connect and relay stdin/stdout

Options:
`, version)
	fmt.Fprint(stdout, fs.FlagUsages())
	fmt.Fprintf(stdout, `
Examples:
  goahead --cert server.pem --key server.key      TLS on 0.0.0.0:4433
  goahead -s ssh --host-key host_key -p 2222 -e   SSH echo server
  goahead -s none -p 7000 -vv                     Plaintext, verbose
  goahead -c localhost:4433 -k                    Talk to a local listener
`)
}
