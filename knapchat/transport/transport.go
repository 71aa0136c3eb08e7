// Package transport abstracts the byte stream between two parties.
//
// A party either listens for one inbound peer or dials one. Both ends then
// exchange framed protocol messages over a single Conn. Implementations live
// in the tcp and quic subpackages.
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is one bidirectional peer stream.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Listener yields inbound peer streams. Accept returns ctx.Err() when ctx is
// cancelled while waiting, and the listener stays usable.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

// Transport creates listeners and outbound streams.
type Transport interface {
	Listen(ctx context.Context, addr string) (Listener, error)
	Dial(ctx context.Context, addr string) (Conn, error)
}
