package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

func newServeCmd(_ *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				os.Setenv("SERVER_PORT", strconv.Itoa(port))
			}
			return withApp(cmd.Context(), appSettings{server: true}, runServer)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}

func runServer(ctx context.Context, app *application) error {
	httpServer := &stdhttp.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", app.cfg.ServerPort),
		Handler:           app.result.HTTPServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger := app.logger
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithFields(logrus.Fields{
			"addr":          httpServer.Addr,
			"index_backend": app.cfg.IndexBackend,
			"blob_backend":  app.cfg.BlobBackend,
			"version":       Version,
		}).Info("starting http server")

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return eris.Wrap(err, "http server error")
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGrace)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "shutting down http server")
		}

		logger.Info("http server shut down cleanly")
		return nil
	})

	return group.Wait()
}
