package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/knapchat/knapchat/config"
	"github.com/TheusHen/knapchat/knapchat/discovery/keyserver"
	"github.com/TheusHen/knapchat/knapchat/discovery/memory"
)

var keyserverCmd = &cobra.Command{
	Use:   "keyserver",
	Short: "Run the public key directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		sigs, stop := receiveSignals()
		defer stop()
		go func() {
			select {
			case sig := <-sigs:
				log.Infof("Received %s, shutting down", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		srv := keyserver.NewServer(memory.New(), keyserver.Options{
			Logger:      log.NewEntry(log.StandardLogger()),
			ConnTimeout: cfg.Keyserver.Timeout,
		})
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Keyserver.Addr) })
		if cfg.Keyserver.AdminAddr != "" {
			g.Go(func() error { return srv.ServeAdmin(ctx, cfg.Keyserver.AdminAddr) })
		}
		return g.Wait()
	},
}

func init() {
	flags := keyserverCmd.Flags()
	flags.String("admin", "", "address of the HTTP admin view (disabled when empty)")
	bindFlag(flags.Lookup("admin"), config.KeyKeyserverAdminAddr)
}
