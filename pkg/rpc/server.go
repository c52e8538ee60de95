package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fortiblox/x1-stakepool/pkg/metrics"
)

// ServerConfig holds configuration for the RPC server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8899" or "127.0.0.1:8899")
	Address string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration

	// MaxRequestSize is the maximum size of a request body in bytes.
	MaxRequestSize int64

	// AllowedOrigins for CORS (empty means allow all).
	AllowedOrigins []string

	// EnableRateLimit enables rate limiting.
	EnableRateLimit bool

	// RateLimitRPS is the requests per second limit per client.
	RateLimitRPS float64

	// RateLimitBurst is the burst capacity for rate limiting.
	RateLimitBurst float64

	// TrustedProxies are peer hosts whose X-Forwarded-For header names the
	// client for rate limiting.
	TrustedProxies []string

	// Logger for request logging. Nil uses a no-op logger.
	Logger *zap.Logger

	// Metrics receives per-method request counts. Nil creates unregistered
	// collectors.
	Metrics *metrics.Metrics

	// Gatherer, when set, is served at /metrics.
	Gatherer prometheus.Gatherer
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         "127.0.0.1:8899",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		MaxRequestSize:  1024 * 1024, // 1MB
		AllowedOrigins:  []string{"*"},
		EnableRateLimit: false,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// Server is a JSON-RPC 2.0 server for the stake pool ledger.
type Server struct {
	config   *ServerConfig
	handlers *Handlers
	logger   *zap.Logger
	metrics  *metrics.Metrics
	server   *http.Server
	mu       sync.RWMutex
	running  bool
}

// NewServer creates a new RPC server.
func NewServer(config *ServerConfig, backend Backend) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	s := &Server{
		config:   config,
		handlers: NewHandlers(backend),
		logger:   config.Logger,
		metrics:  config.Metrics,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

// Handler returns the HTTP handler serving JSON-RPC at / and, when a
// gatherer is configured, Prometheus metrics at /metrics.
func (s *Server) Handler() http.Handler {
	middlewares := []Middleware{
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		CORSMiddleware(s.config.AllowedOrigins),
	}
	if s.config.EnableRateLimit {
		middlewares = append(middlewares, RateLimitMiddleware(s.config.RateLimitRPS, s.config.RateLimitBurst, s.config.TrustedProxies...))
	}

	mux := http.NewServeMux()
	mux.Handle("/", Chain(http.HandlerFunc(s.handleRequest), middlewares...))
	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		listener.Close()
		return errors.New("server already running")
	}
	s.running = true
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("rpc server listening", zap.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully stops the RPC server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// handleRequest processes incoming JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, nil, NewRPCError(InvalidRequest, "only POST method is allowed"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, nil, NewRPCError(ParseError, "failed to read request body"))
		return
	}

	if len(body) > 0 && body[0] == '[' {
		s.handleBatchRequest(w, body)
		return
	}

	s.writeJSON(w, s.processRequest(body))
}

// handleBatchRequest processes a batch of JSON-RPC requests.
func (s *Server) handleBatchRequest(w http.ResponseWriter, body []byte) {
	var requests []json.RawMessage
	if err := json.Unmarshal(body, &requests); err != nil {
		s.writeError(w, nil, NewRPCError(ParseError, "invalid JSON"))
		return
	}

	if len(requests) == 0 {
		s.writeError(w, nil, NewRPCError(InvalidRequest, "empty batch"))
		return
	}

	responses := make([]RPCResponse, 0, len(requests))
	for _, reqBody := range requests {
		response := s.processRequest(reqBody)
		if !isNotification(reqBody) {
			responses = append(responses, response)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, responses)
}

// isNotification reports whether body is a well-formed request without an
// id member. Malformed entries are answered with a null id instead.
func isNotification(body []byte) bool {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return false
	}
	if _, hasID := members["id"]; hasID {
		return false
	}
	var version, method string
	if json.Unmarshal(members["jsonrpc"], &version) != nil || version != JSONRPCVersion {
		return false
	}
	return json.Unmarshal(members["method"], &method) == nil && method != ""
}

// processRequest processes a single JSON-RPC request.
func (s *Server) processRequest(body []byte) RPCResponse {
	var request RPCRequest
	if err := json.Unmarshal(body, &request); err != nil {
		if json.Valid(body) {
			return RPCResponse{
				JSONRPC: JSONRPCVersion,
				Error:   NewRPCError(InvalidRequest, "request must be an object"),
			}
		}
		return RPCResponse{
			JSONRPC: JSONRPCVersion,
			Error:   NewRPCError(ParseError, "invalid JSON"),
		}
	}

	if request.JSONRPC != JSONRPCVersion {
		return RPCResponse{
			JSONRPC: JSONRPCVersion,
			Error:   NewRPCError(InvalidRequest, "invalid jsonrpc version"),
			ID:      request.ID,
		}
	}

	handler := s.handlers.GetHandler(request.Method)
	if handler == nil {
		s.metrics.ObserveRPC("unknown", false)
		return RPCResponse{
			JSONRPC: JSONRPCVersion,
			Error:   NewRPCError(MethodNotFound, fmt.Sprintf("method not found: %s", request.Method)),
			ID:      request.ID,
		}
	}

	result, rpcErr := handler(request.Params)
	s.metrics.ObserveRPC(request.Method, rpcErr == nil)
	if rpcErr != nil {
		s.logger.Debug("rpc method failed",
			zap.String("method", request.Method),
			zap.Int("code", rpcErr.Code),
			zap.String("message", rpcErr.Message),
		)
		return RPCResponse{
			JSONRPC: JSONRPCVersion,
			Error:   rpcErr,
			ID:      request.ID,
		}
	}

	return RPCResponse{
		JSONRPC: JSONRPCVersion,
		Result:  result,
		ID:      request.ID,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	s.writeJSON(w, RPCResponse{
		JSONRPC: JSONRPCVersion,
		Error:   rpcErr,
		ID:      id,
	})
}
