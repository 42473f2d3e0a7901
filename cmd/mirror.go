package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"venue-backend/config"
	"venue-backend/syncclient"
)

// newMirrorCommand runs a headless sync session that keeps a local JSON copy
// of the server document current. With --seed it also performs the first
// write of an empty installation.
func newMirrorCommand(opts *rootOptions) *cobra.Command {
	var (
		server string
		out    string
		seed   bool
	)
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Keep a local JSON replica in sync with a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = opts.cfg.Sync.ServerURL
			}
			initial, err := config.LoadBootstrap(opts.cfg.BootstrapFile)
			if err != nil {
				return err
			}
			log := opts.log.With(zap.String("server", server))
			transport := syncclient.NewHTTPTransport(server, opts.cfg.Sync.Timeout, log)

			var session *syncclient.Session
			session = syncclient.NewSession(transport, initial, syncclient.SessionOptions{
				Debounce:      opts.cfg.Sync.Debounce,
				PollInterval:  opts.cfg.Sync.PollInterval,
				WriteTimeout:  opts.cfg.Sync.Timeout,
				SeedWhenEmpty: seed,
				Logger:        log,
				OnApplied: func(revision int64) {
					if err := writeReplica(session.Replica, out); err != nil {
						log.Warn("write local replica failed", zap.Error(err))
						return
					}
					log.Info("local replica updated", zap.Int64("revision", revision), zap.String("file", out))
				},
			})

			err = session.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "server base URL (defaults to SYNC_SERVER_URL)")
	cmd.Flags().StringVarP(&out, "out", "o", "replica.json", "local replica file")
	cmd.Flags().BoolVar(&seed, "seed", false, "write the bootstrap document when the server has none")
	return cmd
}

func writeReplica(r *syncclient.Replica, path string) error {
	doc, err := r.Payload()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".replica-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
