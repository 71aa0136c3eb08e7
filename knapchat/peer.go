package knapchat

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/knapchat/knapchat/config"
	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/discovery/keyserver"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/session"
	"github.com/TheusHen/knapchat/knapchat/transport"
	"github.com/TheusHen/knapchat/knapchat/transport/quic"
	"github.com/TheusHen/knapchat/knapchat/transport/tcp"
)

var ErrUnknownTransport = errors.Wrap(errs.ErrValidation, "knapchat: unknown transport")

// NewTransport returns the peer transport called name.
func NewTransport(name string) (transport.Transport, error) {
	switch name {
	case config.TransportTCP, "":
		return tcp.New(), nil
	case config.TransportQUIC:
		return quic.New(), nil
	}
	return nil, errors.Wrapf(ErrUnknownTransport, "%q", name)
}

// Peer builds sessions that share one configuration, directory and
// transport.
type Peer struct {
	Config    config.Config
	Directory discovery.Resolver
	Transport transport.Transport
	Logger    *logrus.Entry
	// OnTransition is handed to every session built by Session.
	OnTransition func(from, to session.State)
}

// NewPeer uses the configured keyserver as directory.
func NewPeer(cfg config.Config, log *logrus.Entry) (*Peer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tr, err := NewTransport(cfg.Peer.Transport)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Peer{
		Config:    cfg,
		Directory: keyserver.NewClient(cfg.Keyserver.Addr, cfg.Keyserver.Timeout, log),
		Transport: tr,
		Logger:    log,
	}, nil
}

// Session prepares a run for id. A zero peerID makes the session listen
// first.
func (p *Peer) Session(id, peerID identity.ClientID, console session.Console, interrupt <-chan struct{}) (*session.Session, error) {
	return session.New(session.Config{
		ID:         id,
		PeerID:     peerID,
		Host:       p.Config.Peer.Host,
		KeyBits:    p.Config.KeyBits,
		HalfKeys:   p.Config.Handshake.HalfKeys,
		Derivation: p.Config.Handshake.Derivation,
		IOTimeout:  p.Config.Handshake.IOTimeout,
	}, session.Deps{
		Directory:    p.Directory,
		Transport:    p.Transport,
		Console:      console,
		Interrupt:    interrupt,
		Logger:       p.Logger,
		OnTransition: p.OnTransition,
	})
}
