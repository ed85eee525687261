// Package rpctest provides a leaderboard service speaking the framed JSON-RPC
// protocol of [rpc.Transport], for tests and demos.
package rpctest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/Seeker14491/distancelog/internal/rpc"
)

// codeInternalError is the JSON-RPC code for handler errors that are not an
// [*rpc.RemoteError].
const codeInternalError = -32603

// HandlerFunc answers one call. params is the raw JSON params array.
// Returning an [*rpc.RemoteError] sends it unchanged.
type HandlerFunc func(method string, params json.RawMessage) (any, error)

type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
}

type response struct {
	JSONRPC string           `json:"jsonrpc"`
	Result  any              `json:"result,omitempty"`
	Error   *rpc.RemoteError `json:"error,omitempty"`
	ID      json.RawMessage  `json:"id"`
}

// Server accepts connections and answers framed requests one at a time per
// connection, in order.
type Server struct {
	ln      net.Listener
	handler HandlerFunc
	logger  *slog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer listens on addr and serves h until [Server.Close]. Use
// "127.0.0.1:0" for an ephemeral port. A nil logger uses [slog.Default].
func NewServer(addr string, h HandlerFunc, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ln:      ln,
		handler: h,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.accept()
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// CloseConnections drops every open connection while the server keeps
// accepting new ones.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops accepting, drops every connection and waits for the
// connection goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()
	s.CloseConnections()
	s.wg.Wait()
	return err
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("accept failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		body, err := rpc.ReadFrame(r, 0)
		if err != nil {
			return
		}

		payload, err := json.Marshal(s.dispatch(body))
		if err != nil {
			s.logger.Error("failed to encode response", "error", err)
			return
		}
		if err := rpc.WriteFrame(conn, payload); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(body []byte) response {
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return response{
			JSONRPC: "2.0",
			Error:   &rpc.RemoteError{Code: -32700, Message: "parse error"},
			ID:      json.RawMessage("null"),
		}
	}

	resp := response{JSONRPC: "2.0", ID: req.ID}
	result, err := s.handler(req.Method, req.Params)
	if err != nil {
		var remote *rpc.RemoteError
		if !errors.As(err, &remote) {
			remote = &rpc.RemoteError{Code: codeInternalError, Message: err.Error()}
		}
		resp.Error = remote
		return resp
	}
	resp.Result = result
	return resp
}
