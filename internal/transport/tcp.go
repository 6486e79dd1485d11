package transport

import (
	"context"
	"io"
	"net"
)

func dialTCP(ctx context.Context, host string) (io.ReadWriteCloser, error) {
	d := net.Dialer{Timeout: dialTimeout}
	return d.DialContext(ctx, "tcp", host)
}

type tcpListener struct {
	ln net.Listener
}

func listenTCP(ctx context.Context, host string) (*tcpListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", host)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

// Accept returns the next connection. Cancelling ctx closes the listener.
func (l *tcpListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	type res struct {
		conn net.Conn
		err  error
	}
	ch := make(chan res, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- res{conn: c, err: err}
	}()
	select {
	case <-ctx.Done():
		_ = l.ln.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	}
}

func (l *tcpListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}
