// Package tcp is the default transport: one TCP connection per peer.
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/transport"
)

type Transport struct {
	dialer net.Dialer
}

var _ transport.Transport = (*Transport)(nil)

func New() *Transport { return &Transport{} }

func (t *Transport) Listen(ctx context.Context, addr string) (transport.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Mark(errors.Wrapf(err, "tcp: listen %s", addr), errs.ErrNetwork)
	}
	return &Listener{ln: ln.(*net.TCPListener)}, nil
}

func (t *Transport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Mark(errors.Wrapf(err, "tcp: dial %s", addr), errs.ErrNetwork)
	}
	return conn, nil
}

type Listener struct {
	ln *net.TCPListener
}

// Accept waits for one connection. Cancelling ctx interrupts the wait by
// expiring the listener deadline; the next Accept clears it.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = l.ln.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = l.ln.SetDeadline(time.Now()) })
	conn, err := l.ln.Accept()
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Mark(errors.Wrap(err, "tcp: accept"), errs.ErrNetwork)
	}
	if conn != nil && ctx.Err() != nil {
		_ = conn.Close()
		return nil, ctx.Err()
	}
	return conn, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }
