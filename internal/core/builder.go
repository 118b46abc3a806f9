package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/breezestudio/goahead/config"
	"github.com/breezestudio/goahead/internal/capability"
	"github.com/breezestudio/goahead/internal/metrics"
	"github.com/breezestudio/goahead/internal/retry"
	"github.com/breezestudio/goahead/internal/secure"
	"github.com/breezestudio/goahead/internal/transport"
	"github.com/breezestudio/goahead/util"
)

// Build turns a validated Config into the Mode it describes.  It is the
// single place where configuration is mapped onto components.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.ListenMode() {
		return buildListen(cfg, logger)
	}
	return buildConnect(cfg, logger)
}

func buildConnect(cfg *config.Config, logger *util.Logger) (*ConnectMode, error) {
	host, _, err := util.SplitAddr(cfg.Connect)
	if err != nil {
		return nil, fmt.Errorf("connect address: %w", err)
	}

	var d transport.Dialer
	d, err = transport.NewDialer(cfg.Network, transport.DialOptions{Timeout: config.DefaultDialTimeout})
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Security) {
	case secure.ProtoTLS:
		d = transport.NewTLSDialer(d, host, cfg.Insecure)
	case secure.ProtoPlain:
	default:
		d.Close()
		return nil, fmt.Errorf("connect mode does not speak %q", cfg.Security)
	}

	return &ConnectMode{
		Dialer:  d,
		Network: cfg.Network,
		Address: cfg.Connect,
		Logger:  logger,
	}, nil
}

func buildListen(cfg *config.Config, logger *util.Logger) (*ListenMode, error) {
	acc, err := secure.ForName(cfg.Security)
	if err != nil {
		return nil, err
	}

	// Only the selected protocol's key material is loaded.
	opts := secure.Options{}
	switch strings.ToLower(cfg.Security) {
	case secure.ProtoTLS:
		opts.CertFile, opts.KeyFile = cfg.CertFile, cfg.KeyFile
	case secure.ProtoSSH:
		opts.HostKeyFile = cfg.HostKeyFile
		opts.SSHPassword = cfg.SSHPassword
		if cfg.PromptPassphrase {
			opts.Passphrase = secure.PromptPassphrase
		}
	}
	keys, err := secure.Open(opts)
	if err != nil {
		return nil, err
	}

	var breaker *retry.CircuitBreaker
	if cfg.BreakerFailures > 0 {
		breaker = retry.NewCircuitBreaker(&retry.CircuitBreakerConfig{
			MaxFailures:  cfg.BreakerFailures,
			ResetTimeout: cfg.BreakerReset,
			HalfOpenMax:  1,
			OnStateChange: func(from, to retry.State) {
				logger.Warn("handshake breaker %s -> %s", from, to)
			},
		})
	}

	echo := cfg.Echo
	return &ListenMode{
		Network:  cfg.Network,
		Address:  cfg.Address(),
		Acceptor: acc,
		Keys:     keys,
		NewHandler: func() capability.LineHandler {
			p := &capability.Print{W: os.Stdout}
			if echo {
				return capability.Chain(p, capability.NewEcho())
			}
			return p
		},
		HandshakeTimeout: cfg.HandshakeTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		Breaker:          breaker,
		Backoff:          retry.AcceptBackoff(),
		Metrics:          metrics.New(),
		MetricsInterval:  cfg.MetricsInterval,
		Logger:           logger,
	}, nil
}
