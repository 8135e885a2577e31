package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/electwix/db-catalogue/internal/cache"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema and catalogue HTTP API",
		Long: `Serve POST /schema, POST /catalogue, GET /catalogue, GET /catalogue/{name},
POST /data and GET /data/{name} until interrupted. The catalogue and the table
rows are loaded from the configured stores.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr)")
	return cmd
}

// serverCompiler memoizes results since API clients often resubmit a schema
// to /schema and then /catalogue.
func (a *app) serverCompiler() *compiler.Compiler {
	opts := compiler.Options{Strict: a.cfg.Check.Strict, Logger: a.logger}
	if n := a.cfg.Server.CompileCache; n > 0 {
		opts.Cache = cache.NewMemoryCache[compiler.Result](n)
		opts.CacheTTL = time.Duration(a.cfg.Server.CompileCacheTTL)
	}
	return compiler.New(opts)
}

func (a *app) serve(ctx context.Context) error {
	cat, eng, closeStore, err := a.openData(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := server.New(server.Config{
		Addr:         a.cfg.Server.Addr,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout),
		Compiler:     a.serverCompiler(),
		Catalogue:    cat,
		Data:         eng,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	a.logger.Info("catalogue ready", "backend", string(a.cfg.Store.Backend), "tables", cat.Len())
	return srv.Serve(ctx)
}
