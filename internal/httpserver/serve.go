package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/andrebq/stockroom/internal/logutil"
)

type (
	Options struct {
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}
)

func DefaultOptions() Options {
	return Options{
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		IdleTimeout:     time.Minute * 2,
		ShutdownTimeout: time.Second * 15,
	}
}

// Serve blocks until ctx is cancelled or the server fails to listen.
// Cancelling ctx starts a graceful shutdown and is not an error.
func Serve(ctx context.Context, bind string, handler http.Handler, opts Options) error {
	server := &http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	// requests must outlive ctx during shutdown, so only the logger is carried over
	server.BaseContext = func(_ net.Listener) context.Context {
		return logutil.WithLogger(context.Background(), log)
	}

	failed := make(chan error, 1)
	go func() {
		defer close(failed)
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Initiating shutdown process")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	<-failed
	if err != nil {
		return err
	}
	log.Info().Msg("Shutdown completed")
	return nil
}
