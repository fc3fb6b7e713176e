// Package server implements the TCP request/response front-end that
// exposes an engine.Engine over the wire protocol.
package server

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"

	"kvs/internal/engine"
	"kvs/internal/pool"
	"kvs/internal/wire"
)

// Server accepts connections on a single goroutine and dispatches every
// non-Shutdown request to a worker pool cloning the engine handle.
type Server struct {
	listener net.Listener
	engine   engine.Engine
	pool     pool.Pool
}

// New binds addr and returns a Server ready to Run, handling requests
// against engine with the given worker pool.
func New(addr string, eng engine.Engine, p pool.Pool) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	return &Server{listener: listener, engine: eng, pool: p}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Run accepts connections forever, handling Shutdown synchronously on
// the accept goroutine so no new connections slip in after it, and
// returns once Shutdown has drained the worker pool.
func (s *Server) Run() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}

		shouldStop, err := s.handleConn(conn)
		if shouldStop {
			return err
		}
		if err != nil {
			slog.Error("server: error handling request", "error", err)
		}
	}
}

// handleConn reads and decodes exactly one request line synchronously
// (so Shutdown can be observed before the next Accept), then dispatches
// non-Shutdown requests to the pool. For Shutdown it stops listening and
// drains the pool before replying, and returns true along with any error
// from that shutdown.
func (s *Server) handleConn(conn net.Conn) (bool, error) {
	rd := bufio.NewReader(conn)
	req, err := wire.ReadRequest(rd)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("read request: %w", err)
	}
	slog.Debug("server: handling request", "op", req.Op, "key", req.Key)

	if req.Op == wire.OpShutdown {
		defer conn.Close()
		shutdownErr := s.shutdown()
		reply := wire.OkReply(nil)
		if shutdownErr != nil {
			reply = wire.ErrReply(shutdownErr.Error())
		}
		if err := wire.WriteReply(conn, reply); err != nil {
			slog.Error("server: write shutdown reply", "error", err)
		}
		return true, shutdownErr
	}

	eng := s.engine.Clone()
	s.pool.Spawn(func() {
		defer conn.Close()
		reply := dispatch(eng, req)
		if err := wire.WriteReply(conn, reply); err != nil {
			slog.Error("server: write reply", "error", err)
		}
	})
	return false, nil
}

func dispatch(eng engine.Engine, req wire.Request) wire.Reply {
	switch req.Op {
	case wire.OpGet:
		value, ok, err := eng.Get(req.Key)
		if err != nil {
			return wire.ErrReply(err.Error())
		}
		if !ok {
			return wire.OkReply(nil)
		}
		return wire.OkReply(&value)
	case wire.OpSet:
		if err := eng.Set(req.Key, req.Value); err != nil {
			return wire.ErrReply(err.Error())
		}
		return wire.OkReply(nil)
	case wire.OpRm:
		if err := eng.Remove(req.Key); err != nil {
			return wire.ErrReply(err.Error())
		}
		return wire.OkReply(nil)
	default:
		return wire.ErrReply(fmt.Sprintf("server: unhandled op %q", req.Op))
	}
}

// shutdown stops listening and drains the worker pool.
func (s *Server) shutdown() error {
	slog.Info("server: shutting down")
	if err := s.listener.Close(); err != nil {
		return fmt.Errorf("server: close listener: %w", err)
	}
	return s.pool.Close()
}
