package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/knapchat/knapchat/crypto"
	"github.com/TheusHen/knapchat/knapchat/crypto/solitaire"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/protocol"
)

func (s *Session) generateKeyPair(context.Context) error {
	kp, err := identity.GenerateKeyPair(s.cfg.Random, s.cfg.KeyBits)
	if err != nil {
		return err
	}
	s.keys = kp
	s.log.WithField("public_key", kp.Public).Debug("Generated key pair")
	return nil
}

func (s *Session) register(ctx context.Context) error {
	return s.deps.Directory.Register(ctx, s.cfg.ID, s.keys.Public)
}

// resolveRole listens for a peer unless one was configured. An interrupt
// while listening makes this side the initiator.
func (s *Session) resolveRole(ctx context.Context) error {
	if s.peerID == 0 {
		accepted, err := s.listen(ctx)
		if err != nil {
			return err
		}
		if accepted {
			s.role = RoleResponder
			return nil
		}
	}

	s.role = RoleInitiator
	for s.peerID == 0 {
		id, err := s.deps.Console.ReadPeerID(ctx)
		if err != nil {
			return errors.Wrap(err, "session: read peer id")
		}
		if id.Validate() == nil && id != s.cfg.ID {
			s.peerID = id
		}
	}
	return nil
}

// listen waits on Host:ID for a peer that sends a well-formed
// identification. Identifications without a client id are dropped and the
// wait continues. It reports false when the wait was interrupted.
func (s *Session) listen(ctx context.Context) (bool, error) {
	addr := s.cfg.ID.Addr(s.cfg.Host)
	ln, err := s.deps.Transport.Listen(ctx, addr)
	if err != nil {
		return false, err
	}
	defer ln.Close()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.deps.Interrupt != nil {
		go func() {
			select {
			case <-s.deps.Interrupt:
				cancel()
			case <-listenCtx.Done():
			}
		}()
	}

	s.log.WithField("addr", ln.Addr().String()).Info("Listening for a peer. Interrupt to connect to a peer instead.")
	for {
		conn, err := ln.Accept(listenCtx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if listenCtx.Err() != nil {
				s.log.Info("Listening interrupted")
				return false, nil
			}
			return false, err
		}
		log := s.log.WithField("remote", conn.RemoteAddr().String())
		log.Info("Accepted peer connection")

		s.conn = conn
		s.arm()
		stop := context.AfterFunc(listenCtx, func() { _ = conn.Close() })
		hello, err := protocol.ReadHello(conn, s.keys)
		stop()
		if err != nil {
			s.cleanup()
			switch {
			case ctx.Err() != nil:
				return false, ctx.Err()
			case listenCtx.Err() != nil:
				s.log.Info("Listening interrupted")
				return false, nil
			case errors.Is(err, protocol.ErrMissingClientID):
				log.WithError(err).Warn("Invalid peer handshake")
				continue
			}
			return false, err
		}
		log.WithField("peer_id", hello.ClientID).Info("Received identification")
		s.peerID = hello.ClientID
		s.watch(ctx)
		return true, nil
	}
}

func (s *Session) resolvePeerKey(ctx context.Context) error {
	key, err := s.deps.Directory.Retrieve(ctx, s.peerID)
	if err != nil {
		return err
	}
	s.peerKey = key
	s.log.WithField("peer_id", s.peerID).Info("Resolved peer public key")
	return nil
}

// acknowledge completes the identification exchange. The initiator connects,
// identifies itself and waits for the acknowledgment; the responder sends it.
func (s *Session) acknowledge(ctx context.Context) error {
	if s.role == RoleResponder {
		s.arm()
		return protocol.WriteSealed(s.conn, protocol.MessageTypeAck, protocol.Ack{Status: protocol.AckOK}, s.peerKey)
	}

	conn, err := s.deps.Transport.Dial(ctx, s.peerID.Addr(s.cfg.Host))
	if err != nil {
		return err
	}
	s.conn = conn
	s.watch(ctx)
	s.log.WithField("peer_id", s.peerID).Info("Connected to peer")

	s.arm()
	if err := protocol.WriteSealed(conn, protocol.MessageTypeHello, protocol.Hello{ClientID: s.cfg.ID}, s.peerKey); err != nil {
		return err
	}
	var ack protocol.Ack
	s.arm()
	if err := protocol.ReadSealed(conn, protocol.MessageTypeAck, s.keys, &ack); err != nil {
		return err
	}
	if ack.Status != protocol.AckOK {
		return errors.Wrapf(ErrHandshakeRejected, "status %q", ack.Status)
	}
	return nil
}

// exchangeHalfKeys sends first as initiator and receives first as
// responder, so neither side waits on the other forever.
func (s *Session) exchangeHalfKeys(ctx context.Context) error {
	k, err := crypto.GenerateHalfKey(s.cfg.Random, s.cfg.HalfKeys)
	if err != nil {
		return err
	}
	s.halfKey = k
	s.log.WithField("half_key", k).Debug("Generated own half key")

	if s.role.ShouldStart() {
		if err := s.sendHalfKey(); err != nil {
			return err
		}
		return s.receiveHalfKey()
	}
	if err := s.receiveHalfKey(); err != nil {
		return err
	}
	return s.sendHalfKey()
}

func (s *Session) sendHalfKey() error {
	s.arm()
	return protocol.WriteSealed(s.conn, protocol.MessageTypeHalfKey, protocol.HalfKey{HalfKey: s.halfKey}, s.peerKey)
}

func (s *Session) receiveHalfKey() error {
	s.arm()
	k, err := protocol.ReadHalfKey(s.conn, s.keys)
	if err != nil {
		return err
	}
	s.peerHalfKey = k
	s.log.WithField("half_key", k).Debug("Received peer half key")
	return nil
}

func (s *Session) deriveCommonKey(context.Context) error {
	deck, err := crypto.DeriveCommonKey(s.halfKey, s.peerHalfKey, s.cfg.Derivation)
	if err != nil {
		return err
	}
	s.commonKey = deck
	s.log.WithFields(logrus.Fields{"derivation": s.cfg.Derivation, "key": deck}).Debug("Generated common key")
	return nil
}

func (s *Session) initCipher(context.Context) error {
	ks, err := solitaire.NewKeystream(s.commonKey)
	if err != nil {
		return errs.Mark(err, errs.ErrCrypto)
	}
	s.cipher = solitaire.NewStreamCipher(ks)
	s.log.Info("Stream cipher initialized")
	return nil
}

// watch closes the peer connection when ctx ends so blocked reads return.
// Calling it again is harmless.
func (s *Session) watch(ctx context.Context) {
	if s.unwatch != nil || s.conn == nil {
		return
	}
	conn := s.conn
	s.unwatch = context.AfterFunc(ctx, func() { _ = conn.Close() })
}
