// Package session runs one party of a knapchat conversation.
//
// A Session walks linearly through the handshake states: it generates a
// knapsack keypair, registers the public key with the directory, resolves
// its role by listening for a peer (or connecting out), exchanges sealed
// identification and acknowledgment messages, exchanges half-keys in role
// order, derives the common deck and then alternates stream-cipher messages
// with the peer until one side ends the conversation.
//
// The stream cipher carries no integrity check. A lost, duplicated or
// reordered message leaves both keystreams out of step for the rest of the
// session; the next message then fails to decode and the session aborts.
package session

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/knapchat/knapchat/crypto"
	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/crypto/solitaire"
	"github.com/TheusHen/knapchat/knapchat/discovery"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/transport"
)

var (
	ErrAlreadyRun        = errors.New("session: already run")
	ErrHandshakeRejected = errors.Wrap(errs.ErrProtocol, "session: peer did not accept the handshake")
	ErrMissingDependency = errors.Wrap(errs.ErrValidation, "session: missing dependency")
)

// Config holds the per-party settings.
type Config struct {
	ID identity.ClientID
	// PeerID skips listening and connects straight to this peer.
	PeerID identity.ClientID
	// Host is where parties listen; a party listens on Host:ID.
	Host       string
	KeyBits    int
	HalfKeys   crypto.HalfKeyRange
	Derivation crypto.Derivation
	// IOTimeout bounds every peer send and receive. Zero blocks forever.
	IOTimeout time.Duration
	// Random feeds key and half-key generation. Nil uses crypto/rand.
	Random io.Reader
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.KeyBits == 0 {
		c.KeyBits = knapsack.DefaultBits
	}
	if c.HalfKeys == (crypto.HalfKeyRange{}) {
		c.HalfKeys = crypto.DefaultHalfKeyRange
	}
	if c.Derivation == "" {
		c.Derivation = crypto.DerivationLegacy
	}
}

// Deps are the collaborators a session talks to.
type Deps struct {
	Directory discovery.Resolver
	Transport transport.Transport
	Console   Console
	// Interrupt ends the listen wait and turns the session into an
	// initiator. It is only watched while listening.
	Interrupt <-chan struct{}
	Logger    *logrus.Entry
	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

// Session is one party's run. It is not safe for concurrent use.
type Session struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry

	state State
	role  Role

	keys        identity.KeyPair
	peerID      identity.ClientID
	peerKey     knapsack.PublicKey
	conn        transport.Conn
	unwatch     func() bool
	halfKey     uint64
	peerHalfKey uint64
	commonKey   solitaire.Deck
	cipher      *solitaire.StreamCipher
}

func New(cfg Config, deps Deps) (*Session, error) {
	cfg.setDefaults()
	if err := cfg.ID.Validate(); err != nil {
		return nil, err
	}
	if cfg.PeerID != 0 {
		if err := cfg.PeerID.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.HalfKeys.Validate(); err != nil {
		return nil, err
	}
	if deps.Directory == nil || deps.Transport == nil || deps.Console == nil {
		return nil, ErrMissingDependency
	}
	log := deps.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		cfg:    cfg,
		deps:   deps,
		log:    log.WithFields(logrus.Fields{"component": "session", "client_id": cfg.ID}),
		peerID: cfg.PeerID,
	}, nil
}

func (s *Session) State() State { return s.state }

func (s *Session) Role() Role { return s.role }

func (s *Session) PeerID() identity.ClientID { return s.peerID }

// CommonKey returns the derived deck. It is the zero deck before
// StateCommonKeyDerived.
func (s *Session) CommonKey() solitaire.Deck { return s.commonKey }

// PublicKey returns the registered public key.
func (s *Session) PublicKey() knapsack.PublicKey { return s.keys.Public.Clone() }

type step func(ctx context.Context) error

func (s *Session) steps() map[State]step {
	return map[State]step{
		StateInit:             s.generateKeyPair,
		StateKeyPairGenerated: s.register,
		StateRegistered:       s.resolveRole,
		StateRoleResolved:     s.resolvePeerKey,
		StatePeerKeyResolved:  s.acknowledge,
		StateHandshakeAcked:   s.exchangeHalfKeys,
		StateHalfKeyExchanged: s.deriveCommonKey,
		StateCommonKeyDerived: s.initCipher,
		StateCipherReady:      s.startMessaging,
		StateMessaging:        s.messageLoop,
	}
}

// Run drives the session to StateClosed. Any error aborts the run; there are
// no retries. The peer connection is always closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if s.state != StateInit {
		return ErrAlreadyRun
	}
	defer s.cleanup()

	steps := s.steps()
	for s.state != StateClosed {
		if err := steps[s.state](ctx); err != nil {
			s.log.WithError(err).WithField("state", s.state).Error("Session aborted")
			s.transition(StateClosed)
			return err
		}
		s.transition(s.state.Next())
	}
	s.log.Info("Messaging over. Goodbye!")
	return nil
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	s.log.WithFields(logrus.Fields{"from": from, "to": to, "role": s.role}).Info("State transition")
	if s.deps.OnTransition != nil {
		s.deps.OnTransition(from, to)
	}
}

func (s *Session) cleanup() {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// arm applies IOTimeout to the next peer operation.
func (s *Session) arm() {
	if s.cfg.IOTimeout > 0 && s.conn != nil {
		_ = s.conn.SetDeadline(time.Now().Add(s.cfg.IOTimeout))
	}
}
