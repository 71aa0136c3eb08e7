package main

import (
	"context"
	"os"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TheusHen/knapchat/knapchat"
	"github.com/TheusHen/knapchat/knapchat/config"
	"github.com/TheusHen/knapchat/knapchat/identity"
	"github.com/TheusHen/knapchat/knapchat/session"
)

var clientCmd = &cobra.Command{
	Use:   "client <client_id> [peer_id]",
	Short: "Chat with a peer",
	Long: `Registers a fresh public key under client_id and chats with a peer.

client_id is also the port this client listens on. Without peer_id the
client waits for a peer to connect; press Ctrl-C to stop waiting and enter
the peer to connect to instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := identity.ParseClientID(args[0])
		if err != nil {
			return err
		}
		var peerID identity.ClientID
		if len(args) == 2 {
			if peerID, err = identity.ParseClientID(args[1]); err != nil {
				return err
			}
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runClient(cmd.Context(), cfg, id, peerID)
	},
}

func init() {
	flags := clientCmd.Flags()
	flags.String("host", config.Default().Peer.Host, "host clients listen on and dial")
	flags.String("transport", config.Default().Peer.Transport, "peer transport (tcp or quic)")
	flags.String("derivation", string(config.Default().Handshake.Derivation), "common key derivation (legacy or hkdf)")
	flags.Duration("io-timeout", 0, "limit on each peer send and receive (0 waits forever)")

	bindFlag(flags.Lookup("host"), config.KeyPeerHost)
	bindFlag(flags.Lookup("transport"), config.KeyPeerTransport)
	bindFlag(flags.Lookup("derivation"), config.KeyDerivation)
	bindFlag(flags.Lookup("io-timeout"), config.KeyIOTimeout)
}

func runClient(ctx context.Context, cfg config.Config, id, peerID identity.ClientID) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	peer, err := knapchat.NewPeer(cfg, log.WithField("client_id", id))
	if err != nil {
		return err
	}
	var state atomic.Int32
	peer.OnTransition = func(_, to session.State) { state.Store(int32(to)) }

	// SIGINT while listening switches to connecting out. Any other signal,
	// or SIGINT later on, ends the client.
	interrupt := make(chan struct{}, 1)
	sigs, stop := receiveSignals()
	defer stop()
	go func() {
		for {
			select {
			case sig := <-sigs:
				if sig == os.Interrupt && session.State(state.Load()) == session.StateRegistered {
					select {
					case interrupt <- struct{}{}:
					default:
					}
					continue
				}
				log.Infof("Received %s, exiting", sig)
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	sess, err := peer.Session(id, peerID, newTerminal(os.Stdin, os.Stdout), interrupt)
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}
