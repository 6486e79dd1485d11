package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocol is the Application-Layer Protocol Negotiation identifier for filexfer over QUIC.
	ALPNProtocol = "filexfer-quic-v1"

	streamAcceptTimeout = 10 * time.Second
)

// ServerTLSConfig returns a TLS configuration with a fresh self-signed
// certificate. QUIC requires TLS; authenticating the peer is left to the
// layer that hands out addresses.
func ServerTLSConfig() (*tls.Config, error) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
	}, nil
}

// ClientTLSConfig accepts any server certificate.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPNProtocol},
	}
}

// DefaultQUICConfig returns the QUIC settings used on both sides.
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod:                10 * time.Second,
		MaxIdleTimeout:                 30 * time.Second,
		MaxIncomingStreams:             4,
		InitialConnectionReceiveWindow: 4 * 1024 * 1024,
		MaxConnectionReceiveWindow:     16 * 1024 * 1024,
		InitialStreamReceiveWindow:     2 * 1024 * 1024,
		MaxStreamReceiveWindow:         8 * 1024 * 1024,
	}
}

func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, err
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"filexfer"}},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
	}, nil
}

func dialQUIC(ctx context.Context, host string, logger *slog.Logger) (io.ReadWriteCloser, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := quic.DialAddr(dialCtx, host, ClientTLSConfig(), DefaultQUICConfig())
	if err != nil {
		logger.Error("QUIC dial failed", "error", err, "remote_addr", host)
		return nil, err
	}
	stream, err := conn.OpenStreamSync(dialCtx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	logger.Debug("QUIC stream opened", "remote_addr", conn.RemoteAddr(), "stream_id", stream.StreamID())
	return &quicStream{conn: conn, stream: stream}, nil
}

type quicListener struct {
	ln      *quic.Listener
	logger  *slog.Logger
	streams chan *quicStream
	done    chan struct{}
	once    sync.Once
}

func listenQUIC(host string, logger *slog.Logger) (*quicListener, error) {
	tlsConfig, err := ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := quic.ListenAddr(host, tlsConfig, DefaultQUICConfig())
	if err != nil {
		logger.Error("QUIC listen failed", "error", err, "local_addr", host)
		return nil, err
	}
	logger.Info("QUIC listener created", "local_addr", ln.Addr())
	l := &quicListener{
		ln:      ln,
		logger:  logger,
		streams: make(chan *quicStream),
		done:    make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

// acceptLoop takes connections until the listener closes and waits for each
// connection's first stream on its own goroutine, so a silent client cannot
// hold up the others.
func (l *quicListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept(context.Background())
		if err != nil {
			l.logger.Debug("QUIC accept loop stopped", "error", err)
			return
		}
		go l.awaitStream(conn)
	}
}

// awaitStream hands over the connection's first stream. The dialer's stream
// only becomes visible once it carries data, which every transfer does
// immediately with its header.
func (l *quicListener) awaitStream(conn *quic.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), streamAcceptTimeout)
	defer cancel()
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		l.logger.Debug("QUIC stream not opened", "remote_addr", conn.RemoteAddr(), "error", err)
		_ = conn.CloseWithError(0, "")
		return
	}
	l.logger.Debug("QUIC stream accepted", "remote_addr", conn.RemoteAddr(), "stream_id", stream.StreamID())
	select {
	case l.streams <- &quicStream{conn: conn, stream: stream}:
	case <-l.done:
		_ = conn.CloseWithError(0, "")
	}
}

func (l *quicListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	select {
	case s := <-l.streams:
		return s, nil
	case <-l.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *quicListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting. Streams already handed out stay open.
func (l *quicListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.ln.Close()
	})
	return err
}

// quicStream owns both the stream and its connection.
type quicStream struct {
	conn   *quic.Conn
	stream *quic.Stream

	closeOnce sync.Once
	closeErr  error
}

func (s *quicStream) Read(p []byte) (int, error) {
	return s.stream.Read(p)
}

func (s *quicStream) Write(p []byte) (int, error) {
	return s.stream.Write(p)
}

// Close finishes the send side, waits briefly for the peer to finish its
// side so in-flight data is not cut off, then closes the connection.
func (s *quicStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stream.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close QUIC stream: %w", err)
		}
		_ = s.stream.SetReadDeadline(time.Now().Add(closeLinger))
		_, _ = io.Copy(io.Discard, s.stream)
		if err := s.conn.CloseWithError(0, ""); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("failed to close QUIC connection: %w", err)
		}
	})
	return s.closeErr
}
