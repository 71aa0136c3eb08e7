package session

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/protocol"
)

func (s *Session) startMessaging(context.Context) error {
	s.log.Infof("Starting message loop. To stop, type '%s' in your round.", ExitCommand)
	return nil
}

// messageLoop alternates turns with the peer, the initiator speaking first.
// It ends when this side sends the exit notice or receives the peer's.
func (s *Session) messageLoop(ctx context.Context) error {
	if s.role.ShouldStart() {
		if over, err := s.sendTurn(ctx); err != nil || over {
			return err
		}
	}
	for {
		if over, err := s.receiveTurn(ctx); err != nil || over {
			return err
		}
		if over, err := s.sendTurn(ctx); err != nil || over {
			return err
		}
	}
}

func (s *Session) sendTurn(ctx context.Context) (bool, error) {
	line, err := s.deps.Console.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		line, err = ExitCommand, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, errors.Wrap(err, "session: read message")
	}

	msg := protocol.AppMessage{Message: line}
	if line == ExitCommand {
		msg = protocol.AppMessage{Over: true}
	}
	s.arm()
	if err := protocol.WriteData(s.conn, s.cipher, msg); err != nil {
		return false, err
	}
	s.log.WithField("message", msg.Message).Debug("Sent message")
	return msg.Over, nil
}

func (s *Session) receiveTurn(ctx context.Context) (bool, error) {
	s.arm()
	msg, err := protocol.ReadData(s.conn, s.cipher)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, err
	}
	if msg.Over {
		s.log.Info("Peer ended the conversation")
		return true, nil
	}
	s.log.WithField("message", msg.Message).Debug("Received message")
	s.deps.Console.Show(msg.Message)
	return false, nil
}
