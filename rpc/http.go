package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"perkledger/core"
	"perkledger/core/state"
	"perkledger/native/loyalty"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitRPS    = 25
	rateLimitBurst  = 50
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32002
	codeForbidden      = -32003
	codePrecondition   = -32004
	codeConflict       = -32005
	codeDuplicate      = -32006
)

// Server exposes the ledger over JSON-RPC, a websocket event stream and a
// prometheus metrics endpoint.
type Server struct {
	ledger *core.Ledger
	log    *slog.Logger

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	authToken string
	jwtSecret []byte
}

// NewServer creates a server for the ledger. The static bearer token and the
// JWT signing secret are read from the provided environment variable names;
// when both are empty the mutating endpoints are open (useful for local
// development, never for production).
func NewServer(ledger *core.Ledger, log *slog.Logger, tokenEnv, jwtSecretEnv string) *Server {
	s := &Server{
		ledger:   ledger,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
	}
	if tokenEnv != "" {
		s.authToken = strings.TrimSpace(os.Getenv(tokenEnv))
	}
	if jwtSecretEnv != "" {
		if secret := strings.TrimSpace(os.Getenv(jwtSecretEnv)); secret != "" {
			s.jwtSecret = []byte(secret)
		}
	}
	return s
}

// Router builds the HTTP routes served by Start.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/ws/events", s.handleEventsWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the RPC endpoint until the listener fails.
func (s *Server) Start(addr string) error {
	if s.log != nil {
		s.log.Info("starting JSON-RPC server", "addr", addr)
	}
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(&RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(&RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	})
}

func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allow(clientIP string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
		s.limiters[clientIP] = limiter
	}
	return limiter.Allow()
}

// authorized validates the Authorization header against the static token or,
// when configured, an HS256-signed JWT.
func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" && len(s.jwtSecret) == 0 {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return false
	}
	if s.authToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1 {
		return true
	}
	if len(s.jwtSecret) > 0 {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		})
		if err == nil && parsed.Valid {
			return true
		}
	}
	return false
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	clientIP := s.clientIP(r)
	if !s.allow(clientIP) {
		writeError(w, http.StatusTooManyRequests, nil, codeServerError, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid JSON-RPC request")
		return
	}

	handler, ok := methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found")
		return
	}
	if handler.mutating && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized")
		return
	}

	result, rpcErr := handler.fn(s, req.Params)
	if rpcErr != nil {
		writeError(w, rpcErr.status, req.ID, rpcErr.code, rpcErr.message)
		return
	}
	writeResult(w, req.ID, result)
}

type handlerError struct {
	status  int
	code    int
	message string
}

type methodHandler struct {
	mutating bool
	fn       func(*Server, []json.RawMessage) (interface{}, *handlerError)
}

func invalidParams(message string) *handlerError {
	return &handlerError{status: http.StatusBadRequest, code: codeInvalidParams, message: message}
}

// ledgerError maps domain sentinels to stable JSON-RPC error codes so
// clients can branch on them.
func ledgerError(err error) *handlerError {
	switch {
	case errors.Is(err, loyalty.ErrNotFound):
		return &handlerError{status: http.StatusOK, code: codeNotFound, message: err.Error()}
	case errors.Is(err, loyalty.ErrUnauthorized):
		return &handlerError{status: http.StatusOK, code: codeForbidden, message: err.Error()}
	case errors.Is(err, loyalty.ErrMerchantNotActive),
		errors.Is(err, loyalty.ErrOfferNotAvailable),
		errors.Is(err, loyalty.ErrInsufficientBalance),
		errors.Is(err, loyalty.ErrInvalidTransition),
		errors.Is(err, loyalty.ErrVoucherExpired),
		errors.Is(err, loyalty.ErrMerchantNotEmpty),
		errors.Is(err, loyalty.ErrOverflow):
		return &handlerError{status: http.StatusOK, code: codePrecondition, message: err.Error()}
	case errors.Is(err, loyalty.ErrDuplicateVoucher),
		errors.Is(err, loyalty.ErrDuplicateOffer),
		errors.Is(err, loyalty.ErrProgramExists),
		errors.Is(err, loyalty.ErrMerchantExists),
		errors.Is(err, loyalty.ErrCustomerExists):
		return &handlerError{status: http.StatusOK, code: codeDuplicate, message: err.Error()}
	case errors.Is(err, loyalty.ErrInvalidName),
		errors.Is(err, loyalty.ErrInvalidRate),
		errors.Is(err, loyalty.ErrInvalidRule),
		errors.Is(err, loyalty.ErrInvalidOffer):
		return &handlerError{status: http.StatusBadRequest, code: codeInvalidParams, message: err.Error()}
	case errors.Is(err, state.ErrConflict):
		return &handlerError{status: http.StatusOK, code: codeConflict, message: err.Error()}
	default:
		return &handlerError{status: http.StatusInternalServerError, code: codeServerError, message: err.Error()}
	}
}
