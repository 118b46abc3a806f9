package secure

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/socket"
)

// testCert returns a self-signed certificate for 127.0.0.1 together
// with its PEM encodings.
func testCert(t *testing.T) (tls.Certificate, []byte, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "goahead test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return cert, certPEM, keyPEM
}

func testHostKey(t *testing.T) (ed25519.PrivateKey, ssh.Signer) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return priv, signer
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

// acceptOne listens on loopback, runs client against the listener and
// returns the server side of the first connection as a socket.
func acceptOne(t *testing.T, client func(addr string)) *socket.Socket {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go client(ln.Addr().String())

	c, err := ln.Accept()
	require.NoError(t, err)
	sock := socket.New(1, c)
	t.Cleanup(func() { sock.Close() })
	return sock
}

// handshake drives acc until the handshake leaves the pending state.
func handshake(t *testing.T, acc Acceptor, sock *socket.Socket, keys *Keys) (Session, error) {
	t.Helper()
	s, err := acc.Accept(nil, sock, keys, false)
	deadline := time.Now().Add(5 * time.Second)
	for errors.Is(err, ncerr.ErrHandshakePending) {
		require.NotNil(t, s, "pending handshake must return the partial session")
		require.True(t, time.Now().Before(deadline), "handshake did not finish")
		time.Sleep(5 * time.Millisecond)
		s, err = acc.Accept(s, sock, keys, true)
	}
	return s, err
}

// readAll polls s until it has returned want bytes.
func readAll(t *testing.T, s Session, want int) string {
	t.Helper()
	var got []byte
	buf := make([]byte, 64)
	require.Eventually(t, func() bool {
		n, err := s.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		return len(got) >= want
	}, 5*time.Second, 5*time.Millisecond)
	return string(got)
}
