package session

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/transport"
)

// pipeNet is an in-process transport. Dial blocks until someone listens on
// the address and then hands one end of a net.Pipe to the listener.
type pipeNet struct {
	mu        sync.Mutex
	listeners map[string]*pipeListener
	changed   chan struct{}
}

func newPipeNet() *pipeNet {
	return &pipeNet{listeners: map[string]*pipeListener{}, changed: make(chan struct{})}
}

func (n *pipeNet) Listen(_ context.Context, addr string) (transport.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[addr]; ok {
		return nil, errs.Mark(errors.Errorf("address %s in use", addr), errs.ErrNetwork)
	}
	l := &pipeListener{net: n, addr: pipeAddr(addr), conns: make(chan net.Conn), done: make(chan struct{})}
	n.listeners[addr] = l
	close(n.changed)
	n.changed = make(chan struct{})
	return l, nil
}

func (n *pipeNet) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	for {
		n.mu.Lock()
		l, ok := n.listeners[addr]
		changed := n.changed
		n.mu.Unlock()
		if ok {
			client, server := net.Pipe()
			select {
			case l.conns <- server:
				return client, nil
			case <-l.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type pipeListener struct {
	net   *pipeNet
	addr  pipeAddr
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func (l *pipeListener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, errs.Mark(net.ErrClosed, errs.ErrNetwork)
	}
}

func (l *pipeListener) Addr() net.Addr { return l.addr }

func (l *pipeListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.net.mu.Lock()
		delete(l.net.listeners, string(l.addr))
		l.net.mu.Unlock()
	})
	return nil
}

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }

// scriptConsole feeds fixed lines and records what the peer said.
type scriptConsole struct {
	peer  identity.ClientID
	lines chan string

	mu    sync.Mutex
	shown []string
}

func newScriptConsole(peer identity.ClientID, lines ...string) *scriptConsole {
	c := &scriptConsole{peer: peer, lines: make(chan string, len(lines))}
	for _, l := range lines {
		c.lines <- l
	}
	close(c.lines)
	return c
}

func (c *scriptConsole) ReadPeerID(ctx context.Context) (identity.ClientID, error) {
	if c.peer == 0 {
		return 0, io.EOF
	}
	return c.peer, nil
}

func (c *scriptConsole) ReadLine(ctx context.Context) (string, error) {
	select {
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *scriptConsole) Show(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, text)
}

func (c *scriptConsole) Shown() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.shown...)
}
