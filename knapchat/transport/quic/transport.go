// Package quic carries the peer protocol over one bidirectional QUIC stream.
//
// TLS here only satisfies QUIC. Certificates are self-signed and not
// verified; the party's identity is established by the knapsack handshake
// running on top of the stream.
package quic

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/transport"
)

// closeGrace bounds how long Close waits for the peer to finish its side of
// the stream before tearing the connection down.
const closeGrace = 500 * time.Millisecond

const errCodeClosed q.ApplicationErrorCode = 0

type Transport struct {
	config *q.Config
}

var _ transport.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{config: &q.Config{KeepAlivePeriod: 15 * time.Second}}
}

// Listen binds addr. Closing the returned listener keeps already accepted
// connections alive; the socket is released once they are closed too.
func (t *Transport) Listen(_ context.Context, addr string) (transport.Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errs.Mark(errors.Wrapf(err, "quic: resolve %s", addr), errs.ErrNetwork)
	}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errs.Mark(errors.Wrapf(err, "quic: listen %s", addr), errs.ErrNetwork)
	}
	tr := &q.Transport{Conn: udp}
	ln, err := tr.Listen(tlsConf, t.config)
	if err != nil {
		_ = tr.Close()
		_ = udp.Close()
		return nil, errs.Mark(errors.Wrapf(err, "quic: listen %s", addr), errs.ErrNetwork)
	}
	return &Listener{inner: ln, tr: tr, udp: udp}, nil
}

// Dial connects to addr and opens the single control stream.
func (t *Transport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	tlsConf, err := NewClientTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err := q.DialAddr(ctx, addr, tlsConf, t.config)
	if err != nil {
		return nil, errs.Mark(errors.Wrapf(err, "quic: dial %s", addr), errs.ErrNetwork)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeClosed, "open stream failed")
		return nil, errs.Mark(errors.Wrap(err, "quic: open stream"), errs.ErrNetwork)
	}
	return &streamConn{conn: conn, Stream: stream}, nil
}

type Listener struct {
	inner *q.Listener
	tr    *q.Transport
	udp   *net.UDPConn

	mu     sync.Mutex
	live   int
	closed bool
}

// Accept waits for a connection and its first stream. The stream becomes
// visible once the dialer writes to it.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	conn, err := l.inner.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Mark(errors.Wrap(err, "quic: accept"), errs.ErrNetwork)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(errCodeClosed, "no stream")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Mark(errors.Wrap(err, "quic: accept stream"), errs.ErrNetwork)
	}
	l.mu.Lock()
	l.live++
	l.mu.Unlock()
	return &streamConn{conn: conn, Stream: stream, release: l.release}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error {
	err := l.inner.Close()
	l.mu.Lock()
	l.closed = true
	idle := l.live == 0
	l.mu.Unlock()
	if idle {
		l.shutdown()
	}
	return err
}

func (l *Listener) release() {
	l.mu.Lock()
	l.live--
	idle := l.closed && l.live == 0
	l.mu.Unlock()
	if idle {
		l.shutdown()
	}
}

func (l *Listener) shutdown() {
	_ = l.tr.Close()
	_ = l.udp.Close()
}

type streamConn struct {
	q.Stream
	conn    q.Connection
	release func()
	once    sync.Once
}

func (c *streamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close finishes the write side, drains the peer's remaining data until it
// finishes too or closeGrace passes, then closes the connection.
func (c *streamConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Stream.Close()
		_ = c.Stream.SetReadDeadline(time.Now().Add(closeGrace))
		_, _ = io.Copy(io.Discard, c.Stream)
		if cerr := c.conn.CloseWithError(errCodeClosed, ""); err == nil {
			err = cerr
		}
		if c.release != nil {
			c.release()
		}
	})
	return err
}
