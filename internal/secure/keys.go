package secure

import (
	"crypto/subtle"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	ncerr "github.com/breezestudio/goahead/internal/errors"
)

// ServerVersion is the identification string sent to SSH clients.
const ServerVersion = "SSH-2.0-goahead"

// Options locates the server's key material.
type Options struct {
	CertFile    string // PEM certificate chain for TLS
	KeyFile     string // PEM private key for TLS
	HostKeyFile string // OpenSSH or PEM host key for SSH
	SSHPassword string // required client password; empty allows any client

	// Passphrase is asked for an encrypted host key.  nil makes an
	// encrypted key an error.
	Passphrase func(path string) ([]byte, error)
}

// Keys is the process-wide key material shared by every connection.
// It is opened once at startup and closed at shutdown; handshakes
// started after Close fail with ErrKeysClosed.
type Keys struct {
	mu     sync.RWMutex
	tls    *tls.Config
	ssh    *ssh.ServerConfig
	closed bool
}

// Open loads whatever key material opts names.  Protocols without
// material are left unconfigured and fail their handshakes with
// ErrNoKeyMaterial.
func Open(opts Options) (*Keys, error) {
	k := &Keys{}

	if opts.CertFile != "" || opts.KeyFile != "" {
		if opts.CertFile == "" || opts.KeyFile == "" {
			return nil, errors.New("tls needs both a certificate and a key file")
		}
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading tls key pair: %w", err)
		}
		k.tls = ServerTLSConfig(cert)
	}

	if opts.HostKeyFile != "" {
		signer, err := LoadHostKey(opts.HostKeyFile, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		k.ssh = ServerSSHConfig(signer, opts.SSHPassword)
	}

	return k, nil
}

// NewKeys builds Keys from configurations made elsewhere.  Either may
// be nil.
func NewKeys(tlsCfg *tls.Config, sshCfg *ssh.ServerConfig) *Keys {
	return &Keys{tls: tlsCfg, ssh: sshCfg}
}

// ServerTLSConfig returns the server configuration used for cert.
func ServerTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// ServerSSHConfig returns the server configuration for a host key.  An
// empty password disables client authentication.
func ServerSSHConfig(signer ssh.Signer, password string) *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{ServerVersion: ServerVersion}
	if password == "" {
		cfg.NoClientAuth = true
	} else {
		want := []byte(password)
		cfg.PasswordCallback = func(meta ssh.ConnMetadata, got []byte) (*ssh.Permissions, error) {
			if subtle.ConstantTimeCompare(got, want) == 1 {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", meta.User())
		}
	}
	cfg.AddHostKey(signer)
	return cfg
}

// LoadHostKey reads an SSH host key, asking passphrase for encrypted
// keys.
func LoadHostKey(path string, passphrase func(path string) ([]byte, error)) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("parsing host key %s: %w", path, err)
	}
	if passphrase == nil {
		return nil, fmt.Errorf("host key %s is encrypted and no passphrase was given", path)
	}

	pass, err := passphrase(path)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, pass)
	if err != nil {
		return nil, fmt.Errorf("decrypting host key %s: %w", path, err)
	}
	return signer, nil
}

// PromptPassphrase asks for a key passphrase on the terminal.
func PromptPassphrase(path string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", path)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return pass, err
}

// TLSConfig returns the TLS server configuration.
func (k *Keys) TLSConfig() (*tls.Config, error) {
	if k == nil {
		return nil, ncerr.ErrNoKeyMaterial
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	switch {
	case k.closed:
		return nil, ncerr.ErrKeysClosed
	case k.tls == nil:
		return nil, fmt.Errorf("tls: %w", ncerr.ErrNoKeyMaterial)
	}
	return k.tls, nil
}

// SSHConfig returns the SSH server configuration.
func (k *Keys) SSHConfig() (*ssh.ServerConfig, error) {
	if k == nil {
		return nil, ncerr.ErrNoKeyMaterial
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	switch {
	case k.closed:
		return nil, ncerr.ErrKeysClosed
	case k.ssh == nil:
		return nil, fmt.Errorf("ssh: %w", ncerr.ErrNoKeyMaterial)
	}
	return k.ssh, nil
}

// Close releases the key material.  It is safe to call more than once.
func (k *Keys) Close() error {
	if k == nil {
		return nil
	}
	k.mu.Lock()
	k.closed = true
	k.tls = nil
	k.ssh = nil
	k.mu.Unlock()
	return nil
}
