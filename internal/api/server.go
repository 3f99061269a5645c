// Package api exposes the bot controls, copy-trade monitor and audit log over
// HTTP, plus the WebSocket event stream.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/bot"
	"solana-swap-bot/internal/copytrade"
	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
	"solana-swap-bot/internal/storage"
	"solana-swap-bot/internal/venue"
	"solana-swap-bot/internal/wallet"
)

// Result limits for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// CopyTrader controls the copy-trade monitor.
type CopyTrader interface {
	Start(ctx context.Context, cfg copytrade.Config) error
	Stop() error
	State() domain.BotState
	Config() copytrade.Config
	Stats() *copytrade.Stats
}

// Bots controls the bundle and volume bots.
type Bots interface {
	StartBundle(ctx context.Context, cfg bot.BundleConfig) error
	StartVolume(ctx context.Context, cfg bot.VolumeConfig) error
	Stop() error
	State() domain.BotState
}

// Options configures the API server.
type Options struct {
	CopyTrade    CopyTrader
	Bots         Bots
	Venues       *venue.Registry
	Wallets      wallet.Registry
	Transactions storage.TransactionStore
	Trades       storage.DetectedTradeStore
	Snapshots    storage.PipelineSnapshotStore
	// Events serves /ws/events. Nil leaves the route unregistered.
	Events http.Handler
	Logger *logrus.Entry
}

// Server routes HTTP requests to the bot components.
type Server struct {
	opts   Options
	router *mux.Router
}

// NewServer builds the router.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "api")
	}
	s := &Server{opts: opts, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	if s.opts.Events != nil {
		r.Handle("/ws/events", s.opts.Events)
	}

	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/copytrade/start", s.handleCopyTradeStart).Methods(http.MethodPost)
	a.HandleFunc("/copytrade/stop", s.handleCopyTradeStop).Methods(http.MethodPost)
	a.HandleFunc("/copytrade/state", s.handleCopyTradeState).Methods(http.MethodGet)
	a.HandleFunc("/copytrade/trades", s.handleCopyTradeTrades).Methods(http.MethodGet)
	a.HandleFunc("/copytrade/stats", s.handleCopyTradeStats).Methods(http.MethodGet)
	a.HandleFunc("/copytrade/stats/summary", s.handleCopyTradeSummary).Methods(http.MethodGet)
	a.HandleFunc("/copytrade/stats/history", s.handleCopyTradeHistory).Methods(http.MethodGet)

	a.HandleFunc("/bot/bundle/start", s.handleBundleStart).Methods(http.MethodPost)
	a.HandleFunc("/bot/volume/start", s.handleVolumeStart).Methods(http.MethodPost)
	a.HandleFunc("/bot/stop", s.handleBotStop).Methods(http.MethodPost)
	a.HandleFunc("/bot/state", s.handleBotState).Methods(http.MethodGet)

	a.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	a.HandleFunc("/transactions", s.handleClearTransactions).Methods(http.MethodDelete)
	a.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)

	a.HandleFunc("/wallets", s.handleListWallets).Methods(http.MethodGet)
	a.HandleFunc("/quote", s.handleQuote).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		// the hub hijacks the connection
		if r.URL.Path == "/ws/events" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.opts.Logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
