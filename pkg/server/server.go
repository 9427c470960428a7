package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/autocomplete/pkg/protocol"
	"github.com/bastiangx/autocomplete/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Server accepts TCP connections and serves each on its own goroutine.
type Server struct {
	handler *Handler
	cfg     Config
	logger  *log.Logger

	// connCtx is canceled when the server starts closing.
	connCtx    context.Context
	cancelConn context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup

	accepted atomic.Int64
	rejected atomic.Int64
}

func New(engine suggest.Suggester, cfg Config, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler:    NewHandler(engine, logger, cfg.IdleTimeout),
		cfg:        cfg,
		logger:     logger,
		connCtx:    ctx,
		cancelConn: cancel,
		conns:      make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Shutdown is called, and always
// returns a non-nil error: ErrServerClosed after a shutdown or ctx.Err() after
// cancellation. Handlers still running when Serve returns are left to Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Server listening", "addr", ln.Addr().String())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.stopAccepting()
		case <-done:
		}
	}()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.logger.Errorf("Error accepting connection: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if !s.track(conn) {
			s.reject(conn)
			continue
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	if err := s.handler.Serve(s.connCtx, conn); err != nil {
		s.logger.Debug("Connection closed with error", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

// track registers conn, reporting false if the server is closing or full.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	if s.cfg.MaxConnections > 0 && len(s.conns) >= s.cfg.MaxConnections {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.accepted.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) reject(conn net.Conn) {
	s.rejected.Add(1)
	s.logger.Warn("Rejecting connection", "remote", conn.RemoteAddr().String())

	// a peer that does not read must not hold up the accept loop
	go func() {
		defer conn.Close()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.Write([]byte(protocol.Terminate(protocol.BusyMessage)))
	}()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// stopAccepting closes the listener and wakes every connection blocked in a read, so
// each one finishes the response it is writing and then exits.
func (s *Server) stopAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return
	}
	s.closing = true
	s.cancelConn()
	if s.listener != nil {
		s.listener.Close()
	}
	now := time.Now()
	for conn := range s.conns {
		conn.SetReadDeadline(now)
	}
}

// Shutdown stops accepting connections and waits for active ones to finish. If ctx is
// done first, the remaining connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopAccepting()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("All connections drained")
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	n := len(s.conns)
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.logger.Warn("Forced connections closed", "count", n)

	<-done
	return ctx.Err()
}

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns connection and command counters.
func (s *Server) Stats() map[string]int {
	s.mu.Lock()
	active := len(s.conns)
	s.mu.Unlock()

	return map[string]int{
		"accepted": int(s.accepted.Load()),
		"active":   active,
		"rejected": int(s.rejected.Load()),
		"commands": int(s.handler.Commands()),
	}
}
