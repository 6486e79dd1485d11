// Package transport opens the byte streams transfers run over. An address is
// a URL whose scheme picks the transport:
//
//	tcp://host:port   plain TCP (also the default when there is no scheme)
//	quic://host:port  one bidirectional QUIC stream per connection
//	ws://host:port/p  binary WebSocket messages read back as a byte stream
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	dialTimeout = 5 * time.Second
	// closeLinger bounds how long Close waits for the peer to finish reading.
	closeLinger = 2 * time.Second
)

// Listener accepts incoming streams.
type Listener interface {
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	Addr() net.Addr
	Close() error
}

type endpoint struct {
	scheme string
	host   string
	path   string
}

func (e endpoint) String() string {
	return e.scheme + "://" + e.host + e.path
}

func parseEndpoint(addr string) (endpoint, error) {
	if addr == "" {
		return endpoint{}, fmt.Errorf("empty address")
	}
	if !strings.Contains(addr, "://") {
		return endpoint{scheme: "tcp", host: addr}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return endpoint{}, fmt.Errorf("parse address %q: %w", addr, err)
	}
	if u.Host == "" {
		return endpoint{}, fmt.Errorf("address %q has no host", addr)
	}
	switch u.Scheme {
	case "tcp", "quic":
		return endpoint{scheme: u.Scheme, host: u.Host}, nil
	case "ws", "wss":
		path := u.Path
		if path == "" {
			path = "/"
		}
		return endpoint{scheme: u.Scheme, host: u.Host, path: path}, nil
	default:
		return endpoint{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, logger *slog.Logger) (io.ReadWriteCloser, error) {
	ep, err := parseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Debug("dialing", "endpoint", ep.String())
	switch ep.scheme {
	case "tcp":
		return dialTCP(ctx, ep.host)
	case "quic":
		return dialQUIC(ctx, ep.host, logger)
	default:
		return dialWS(ctx, ep.String(), logger)
	}
}

// Listen binds addr.
func Listen(ctx context.Context, addr string, logger *slog.Logger) (Listener, error) {
	ep, err := parseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	switch ep.scheme {
	case "tcp":
		return listenTCP(ctx, ep.host)
	case "quic":
		return listenQUIC(ep.host, logger)
	case "ws":
		return listenWS(ctx, ep.host, ep.path, logger)
	default:
		return nil, fmt.Errorf("cannot listen on %s: use a TLS-terminating proxy in front of ws://", ep.scheme)
	}
}
