// Package server serves a chart over HTTP and WebSocket.
//
// Clients post protocol messages to /messages or send them over /ws. Every
// accepted message is applied to the chart through a [protocol.Dispatcher],
// the snapshot is saved to the configured store, and the accepted messages
// are relayed to every connected WebSocket client as one chart.batched
// message. A client that connects receives chart.state.reset first.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/protocol"
	"github.com/matzehuels/sseqchart/pkg/store"
)

// Options configures a Server.
type Options struct {
	// Store receives a snapshot after every accepted mutation. Nil disables
	// persistence.
	Store store.Store

	// Metrics is served on /metrics when non-nil.
	Metrics *Metrics

	Logger *log.Logger
}

// Server owns a chart and the connections watching it.
type Server struct {
	// relayMu orders relayed batches against the state sent to new clients.
	relayMu sync.Mutex

	disp    *protocol.Dispatcher
	store   store.Store
	metrics *Metrics
	hub     *hub
	logger  *log.Logger
	router  chi.Router
}

// New returns a server for c. The server takes ownership of c; callers
// must not touch it afterwards.
func New(c *chart.Chart, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		disp:    protocol.NewDispatcher(c, protocol.WithLogger(logger)),
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
	}
	s.hub = newHub(logger, s.metrics)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/chart", s.handleChart)
	r.Post("/messages", s.handleMessages)
	r.Get("/draw", s.handleDraw)
	r.Get("/render", s.handleRender)
	r.Get("/ws", s.handleWebSocket)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Dispatcher returns the dispatcher that owns the chart.
func (s *Server) Dispatcher() *protocol.Dispatcher { return s.disp }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// apply handles a raw message payload, relays the accepted messages and
// persists the result. It returns one result per decoded message.
func (s *Server) apply(ctx context.Context, data []byte) ([]result, error) {
	msgs, err := protocol.DecodeAll(data)
	if err != nil {
		return nil, err
	}

	s.relayMu.Lock()
	defer s.relayMu.Unlock()

	batch := protocol.NewBatcher()
	results := make([]result, len(msgs))
	accepted := 0
	for i, msg := range msgs {
		// Followers must create entities under the uuids this chart uses.
		msg = protocol.AssignUUIDs(msg)
		results[i] = result{UUID: msg.UUID, Cmd: msg.Cmd.String()}
		if err := s.disp.Handle(ctx, msg); err != nil {
			results[i].setError(err)
			continue
		}
		results[i].OK = true
		accepted++
		if msg.Cmd.String() == protocol.CmdStateReset {
			s.flush(batch)
			s.broadcastState()
			continue
		}
		// Every applied message is relayed, even when correlation uuids repeat.
		batch.Add("", msg)
	}
	s.flush(batch)

	if accepted > 0 {
		s.persist(ctx)
	}
	return results, nil
}

func (s *Server) flush(b *protocol.Batcher) {
	msg, ok := b.Flush()
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode batch", "err", err)
		return
	}
	s.hub.broadcast(data)
}

func (s *Server) broadcastState() {
	data, err := s.stateMessage()
	if err != nil {
		s.logger.Error("encode state", "err", err)
		return
	}
	s.hub.broadcast(data)
}

// stateMessage returns a chart.state.reset message carrying the current
// snapshot.
func (s *Server) stateMessage() ([]byte, error) {
	var state json.RawMessage
	err := s.disp.View(func(c *chart.Chart) error {
		var err error
		state, err = json.Marshal(c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.NewMessage(protocol.CmdStateReset, map[string]any{"state": state}))
}

func (s *Server) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	err := s.disp.View(func(c *chart.Chart) error {
		return store.SaveChart(ctx, s.store, c)
	})
	if err != nil {
		s.logger.Error("save snapshot", "err", err)
	}
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}
