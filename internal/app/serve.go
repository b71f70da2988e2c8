package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/session"
	"github.com/zishang520/socket.io/v2/socket"
)

// Socket events of serve mode.
const (
	EventChange        = "change"
	EventMutate        = "mutate"
	EventMutationError = "mutation_error"
)

// Serve keeps the pipeline live: clients connect over socket.io, receive a
// change snapshot on connect and after every change, and send mutations.
// It blocks until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	m, _, err := a.NewPipeline(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	sess := session.New(ctx, m)
	io := socket.NewServer(nil, nil)
	defer io.Close(nil)

	stop := sess.Subscribe(func(snap session.Snapshot) {
		payload, err := wire(snap)
		if err != nil {
			a.logger.Errorw("Failed to encode snapshot.", "error", err)
			return
		}
		io.Emit(EventChange, payload)
	})
	defer stop()
	io.On("connection", func(clients ...any) {
		a.onConnect(ctx, sess, clients[0].(*socket.Socket))
	})

	srv := &http.Server{Addr: a.config.ListenAddr, Handler: a.serveMux(io)}
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	errCh := make(chan error, 2)
	go func() { errCh <- sess.Run(loopCtx) }()
	go func() {
		a.logger.Infow("Serving pipeline.", "address", a.config.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorw("Server shutdown failed.", "error", err)
	}
	a.logger.Infow("Server stopped.")
	return serveErr
}

func (a *App) serveMux(io *socket.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	mux.HandleFunc("/health", a.healthHandler)
	return mux
}

func (a *App) onConnect(ctx context.Context, sess *session.Session, client *socket.Socket) {
	logger := a.logger.With("sid", client.Id())
	logger.Infow("Client connected.")

	if snap, err := sess.Snapshot(ctx); err == nil {
		if payload, err := wire(snap); err == nil {
			client.Emit(EventChange, payload)
		}
	}

	client.On(EventMutate, func(args ...any) {
		if len(args) == 0 {
			return
		}
		m, err := session.DecodeMutation(args[0])
		if err == nil {
			err = sess.Apply(ctx, m)
		}
		if err != nil {
			logger.Warnw("Mutation rejected.", "op", m.Op, "error", err)
			client.Emit(EventMutationError, map[string]any{"op": m.Op, "error": err.Error()})
			return
		}
		logger.Debugw("Mutation applied.", "op", m.Op)
	})
	client.On("disconnect", func(reason ...any) {
		logger.Infow("Client disconnected.", "reason", reason)
	})
}

// wire converts a value to the plain maps and slices the socket.io encoder
// handles.
func wire(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
