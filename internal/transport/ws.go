package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsReadLimit = 1 << 20

var wsDialer = websocket.Dialer{
	HandshakeTimeout: dialTimeout,
}

func dialWS(ctx context.Context, wsURL string, logger *slog.Logger) (io.ReadWriteCloser, error) {
	conn, resp, err := wsDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket upgrade failed (%d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket upgrade failed (%d)", resp.StatusCode)
		}
		return nil, err
	}
	logger.Debug("websocket connected", "url", wsURL)
	return newWSStream(conn), nil
}

// wsStream reads consecutive binary messages as one byte stream and sends
// every Write as one binary message.
type wsStream struct {
	conn *websocket.Conn
	r    io.Reader

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWSStream(conn *websocket.Conn) *wsStream {
	conn.SetReadLimit(wsReadLimit)
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			mt, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal-closure frame so the peer reads a clean EOF.
func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeLinger))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

type wsListener struct {
	ln     net.Listener
	srv    *http.Server
	conns  chan *websocket.Conn
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func listenWS(ctx context.Context, host, path string, logger *slog.Logger) (*wsListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", host)
	if err != nil {
		return nil, err
	}
	l := &wsListener{
		ln:     ln,
		conns:  make(chan *websocket.Conn),
		done:   make(chan struct{}),
		logger: logger,
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}
		select {
		case l.conns <- conn:
		case <-l.done:
			_ = conn.Close()
		}
	})
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: dialTimeout}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server stopped", "error", err)
		}
	}()
	logger.Info("websocket listener created", "local_addr", ln.Addr(), "path", path)
	return l, nil
}

func (l *wsListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	select {
	case conn := <-l.conns:
		return newWSStream(conn), nil
	case <-l.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *wsListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting. Streams already handed out stay open.
func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}
