package knapchat

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/knapchat/knapchat/config"
	"github.com/TheusHen/knapchat/knapchat/discovery/keyserver"
	"github.com/TheusHen/knapchat/knapchat/discovery/memory"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/session"
	"github.com/TheusHen/knapchat/knapchat/transport"
	"github.com/TheusHen/knapchat/knapchat/transport/quic"
	"github.com/TheusHen/knapchat/knapchat/transport/tcp"
)

type lineConsole struct {
	mu    sync.Mutex
	lines []string
	shown []string
}

func (c *lineConsole) ReadPeerID(context.Context) (identity.ClientID, error) {
	return 0, io.EOF
}

func (c *lineConsole) ReadLine(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return "", io.EOF
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *lineConsole) Show(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, text)
}

func (c *lineConsole) Shown() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.shown...)
}

// retryDial keeps dialing until the peer is up or ctx ends.
type retryDial struct {
	transport.Transport
}

func (r retryDial) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	for {
		conn, err := r.Transport.Dial(ctx, addr)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func freePort(t *testing.T) identity.ClientID {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return identity.ClientID(ln.Addr().(*net.TCPAddr).Port)
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(config.TransportTCP)
	require.NoError(t, err)
	require.IsType(t, &tcp.Transport{}, tr)

	tr, err = NewTransport(config.TransportQUIC)
	require.NoError(t, err)
	require.IsType(t, &quic.Transport{}, tr)

	_, err = NewTransport("carrier-pigeon")
	require.ErrorIs(t, err, ErrUnknownTransport)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestNewPeerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.KeyBits = 2
	_, err := NewPeer(cfg, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestConversationThroughKeyserver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := keyserver.NewServer(memory.New(), keyserver.Options{ConnTimeout: 5 * time.Second})
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	cfg := config.Default()
	cfg.Keyserver.Addr = ln.Addr().String()
	cfg.Peer.Host = "127.0.0.1"
	cfg.Handshake.IOTimeout = 5 * time.Second

	responder, err := NewPeer(cfg, logrus.NewEntry(log))
	require.NoError(t, err)
	listening := make(chan struct{})
	responder.OnTransition = func(_, to session.State) {
		if to == session.StateRegistered {
			close(listening)
		}
	}
	initiator, err := NewPeer(cfg, logrus.NewEntry(log))
	require.NoError(t, err)

	rID, iID := freePort(t), freePort(t)
	rConsole := &lineConsole{lines: []string{"hello back"}}
	iConsole := &lineConsole{lines: []string{"hi", session.ExitCommand}}

	rSess, err := responder.Session(rID, 0, rConsole, nil)
	require.NoError(t, err)
	rDone := make(chan error, 1)
	go func() { rDone <- rSess.Run(ctx) }()

	select {
	case <-listening:
	case <-ctx.Done():
		t.Fatal("responder never registered")
	}
	// The responder opens its listener right after registering.
	initiator.Transport = retryDial{initiator.Transport}

	iSess, err := initiator.Session(iID, rID, iConsole, nil)
	require.NoError(t, err)
	require.NoError(t, iSess.Run(ctx))
	require.NoError(t, <-rDone)

	require.Equal(t, session.RoleInitiator, iSess.Role())
	require.Equal(t, session.RoleResponder, rSess.Role())
	require.Equal(t, iSess.CommonKey(), rSess.CommonKey())
	require.Equal(t, []string{"hi"}, rConsole.Shown())
	require.Equal(t, []string{"hello back"}, iConsole.Shown())

	cancel()
	require.NoError(t, <-served)
}
