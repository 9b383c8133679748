package rpc

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tolelom/consensusclash/events"
)

// Server is a JSON-RPC 2.0 HTTP server with an /events websocket stream.
type Server struct {
	handler   *Handler
	emitter   *events.Emitter
	addr      string
	tokenHash []byte // bcrypt hash; empty → no auth required
	tlsConfig *tls.Config
	logger    *slog.Logger
	srv       *http.Server

	mu       sync.Mutex
	verified map[[32]byte]struct{}
	ln       net.Listener
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithAuthTokenHash requires "Authorization: Bearer <token>" where token
// matches the bcrypt hash.
func WithAuthTokenHash(hash string) ServerOption {
	return func(s *Server) { s.tokenHash = []byte(hash) }
}

// WithTLS serves HTTPS with cfg. A nil cfg keeps plain HTTP.
func WithTLS(cfg *tls.Config) ServerOption {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server on addr. emitter may be nil, which disables
// the event stream.
func NewServer(addr string, handler *Handler, emitter *events.Emitter, opts ...ServerOption) *Server {
	s := &Server{
		handler:  handler,
		emitter:  emitter,
		addr:     addr,
		logger:   slog.Default(),
		verified: make(map[[32]byte]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Routes returns the server's HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s.authenticated(http.HandlerFunc(s.serveRPC)))
	if s.emitter != nil {
		mux.Handle("/events", s.authenticated(http.HandlerFunc(s.serveEvents)))
	}
	return mux
}

// Start binds the port synchronously (so callers know immediately if binding
// fails) then serves requests in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	go func() {
		var err error
		if s.tlsConfig != nil {
			err = s.srv.ServeTLS(ln, "", "")
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("rpc server stopped", "err", err)
		}
	}()
	s.logger.Info("rpc listening", "addr", ln.Addr().String(), "tls", s.tlsConfig != nil)
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server, waiting up to 5 seconds for
// in-flight requests to complete.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// authenticated checks the bearer token. Browsers cannot set headers on a
// websocket handshake, so a "token" query parameter is accepted too.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.tokenHash) > 0 {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				token = r.URL.Query().Get("token")
			}
			if !s.checkToken(token) {
				w.WriteHeader(http.StatusUnauthorized)
				writeJSON(w, errResponse(nil, CodeUnauthorized, "unauthorized"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// checkToken compares token with the bcrypt hash. Accepted tokens are cached
// by digest so bcrypt runs once per distinct token.
func (s *Server) checkToken(token string) bool {
	if token == "" {
		return false
	}
	sum := sha256.Sum256([]byte(token))
	s.mu.Lock()
	_, ok := s.verified[sum]
	s.mu.Unlock()
	if ok {
		return true
	}
	if bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) != nil {
		return false
	}
	s.mu.Lock()
	s.verified[sum] = struct{}{}
	s.mu.Unlock()
	return true
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	// Limit request body to 1 MB to prevent memory exhaustion.
	r.Body = http.MaxBytesReader(w, r.Body, 1*1024*1024)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errResponse(nil, CodeParseError, err.Error()))
		return
	}
	if req.JSONRPC != "2.0" {
		writeJSON(w, errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'"))
		return
	}

	writeJSON(w, s.handler.Dispatch(r.Context(), req))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HashToken returns the bcrypt hash to put in rpc.auth_token_hash.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
