package session

import (
	"context"

	"github.com/TheusHen/knapchat/knapchat/identity"
)

// ExitCommand typed as a message ends the conversation.
const ExitCommand = "exit"

// Console is the operator side of a session.
type Console interface {
	// ReadPeerID asks which peer to connect to. It is only called when the
	// session becomes an initiator without a configured peer id.
	ReadPeerID(ctx context.Context) (identity.ClientID, error)
	// ReadLine returns the next message to send. io.EOF is treated like
	// ExitCommand.
	ReadLine(ctx context.Context) (string, error)
	// Show displays a message received from the peer.
	Show(text string)
}
