package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi/grpcweb-bridge/metrics"
	"github.com/yhonda-ohishi/grpcweb-bridge/reflection"
	"github.com/yhonda-ohishi/grpcweb-bridge/server"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/entity"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/knowledge"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/llm"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	Listen        string
	AllowedOrigin string
	Demo          bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the entity, knowledge and completion services over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = serveFlags.Listen
		}

		prom := metrics.New(nil)
		mux, store := newServiceMux(prom)
		if serveFlags.Demo {
			if err := seedDemo(cmd.Context(), store); err != nil {
				return err
			}
		}

		routes := http.NewServeMux()
		routes.Handle("/metrics", prom.Handler())
		routes.Handle("/", mux)

		srv := &http.Server{
			Addr:              addr,
			Handler:           routes,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info().
				Str("addr", addr).
				Strs("methods", mux.GetRegisteredMethods()).
				Msg("serving gRPC-Web")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("listen on %s: %w", addr, err)
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.Listen, "listen", "l", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.AllowedOrigin, "allowed-origin", "*", "CORS origin allowed to call the services")
	serveCmd.Flags().BoolVar(&serveFlags.Demo, "demo", false, "seed the knowledge store with sample passages")
}

// newServiceMux registers every service plus reflection on a new Mux.
func newServiceMux(observer server.Observer) (*server.Mux, *knowledge.Store) {
	opts := []server.Option{server.WithLogger(logger)}
	if serveFlags.AllowedOrigin != "" {
		opts = append(opts, server.WithAllowedOrigin(serveFlags.AllowedOrigin))
	}
	if observer != nil {
		opts = append(opts, server.WithObserver(observer))
	}
	mux := server.NewMux(opts...)

	store := knowledge.NewStore()
	entity.Register(mux, entity.NewDictionary())
	knowledge.Register(mux, store)
	llm.Register(mux, llm.NewRouter(logger, llm.Echo{}))
	reflection.Register(mux)
	return mux, store
}

var demoPassages = []string{
	"Every order ships from the nearest warehouse within two business days.",
	"A cart expires after 30 days without activity.",
	"Customers can return an order within 14 days of delivery.",
}

func seedDemo(ctx context.Context, store *knowledge.Store) error {
	for _, text := range demoPassages {
		if _, err := store.Upsert(ctx, knowledge.UpsertRequest{
			Collection: "docs",
			Chunk:      knowledge.Chunk{Text: text, Source: "demo"},
		}); err != nil {
			return fmt.Errorf("seed demo passages: %w", err)
		}
	}
	return nil
}
