package main

import (
	"github.com/spf13/cobra"

	"github.com/credkit/vcschema/normalize"
	"github.com/credkit/vcschema/server"
	"github.com/credkit/vcschema/store"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor HTTP API",
		Long: `Start the editor HTTP API. Sessions live in memory; submitted templates
are stored in the SQLite database at store.path.

  GET  /healthz
  GET  /metrics
  POST /sessions                  start a session (optional schema body)
  GET  /sessions/{id}             state, ?wait=true for the settled status
  POST /sessions/{id}/submit      store the template
  GET  /templates                 list stored templates`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			st, err := store.New(a.cfg.Store.Path, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			loader, err := normalize.NewLoader(normalize.LoaderOptions{Offline: a.cfg.Normalize.Offline})
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Store:       st,
				Logger:      a.logger,
				Loader:      loader,
				WaitTimeout: a.cfg.Normalize.Timeout,
			})
			defer srv.Close()
			a.logger.Info("serving", "addr", a.cfg.Server.Addr, "store", a.cfg.Store.Path, "offline", a.cfg.Normalize.Offline)
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
