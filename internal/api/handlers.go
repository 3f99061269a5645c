package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"solana-swap-bot/internal/bot"
	"solana-swap-bot/internal/copytrade"
	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
	"solana-swap-bot/internal/venue"
)

// copyTradeRequest is the body of POST /api/copytrade/start. Durations are in milliseconds.
type copyTradeRequest struct {
	TargetWallet     string   `json:"targetWallet"`
	Venue            string   `json:"venue"`
	WalletIDs        []string `json:"walletIds"`
	AmountMode       string   `json:"amountMode"`
	FixedAmountSOL   float64  `json:"fixedAmountSol"`
	SlippageBps      int      `json:"slippageBps"`
	SellMode         string   `json:"sellMode"`
	CopyBuys         *bool    `json:"copyBuys"`
	CopySells        *bool    `json:"copySells"`
	CopyDelayMs      int64    `json:"copyDelayMs"`
	PollIntervalMs   int64    `json:"pollIntervalMs"`
	PageSize         int      `json:"pageSize"`
	ResumeFromCursor bool     `json:"resumeFromCursor"`
}

func (r copyTradeRequest) config() copytrade.Config {
	cfg := copytrade.Config{
		TargetWallet:     r.TargetWallet,
		Venue:            r.Venue,
		WalletIDs:        r.WalletIDs,
		AmountMode:       copytrade.AmountMode(r.AmountMode),
		FixedAmountSOL:   r.FixedAmountSOL,
		SlippageBps:      r.SlippageBps,
		SellMode:         copytrade.SellMode(r.SellMode),
		CopyBuys:         true,
		CopySells:        true,
		CopyDelay:        time.Duration(r.CopyDelayMs) * time.Millisecond,
		PollInterval:     time.Duration(r.PollIntervalMs) * time.Millisecond,
		PageSize:         r.PageSize,
		ResumeFromCursor: r.ResumeFromCursor,
	}
	if r.CopyBuys != nil {
		cfg.CopyBuys = *r.CopyBuys
	}
	if r.CopySells != nil {
		cfg.CopySells = *r.CopySells
	}
	return cfg
}

type bundleRequest struct {
	Venue                string           `json:"venue"`
	TokenMint            string           `json:"tokenMint"`
	Direction            domain.Direction `json:"direction"`
	AmountSOL            float64          `json:"amountSol"`
	SlippageBps          int              `json:"slippageBps"`
	WalletIDs            []string         `json:"walletIds"`
	Rounds               int              `json:"rounds"`
	DelayBetweenRoundsMs int64            `json:"delayBetweenRoundsMs"`
	SellPercentage       int              `json:"sellPercentage"`
}

type volumeRequest struct {
	Venue          string   `json:"venue"`
	TokenMint      string   `json:"tokenMint"`
	BuyAmountSOL   float64  `json:"buyAmountSol"`
	SlippageBps    int      `json:"slippageBps"`
	WalletIDs      []string `json:"walletIds"`
	MinDelayMs     int64    `json:"minDelayMs"`
	MaxDelayMs     int64    `json:"maxDelayMs"`
	SellPercentage int      `json:"sellPercentage"`
	MaxRounds      int      `json:"maxRounds"`
}

type statusResponse struct {
	Status string          `json:"status"`
	State  domain.BotState `json:"state"`
}

// startStatus maps a start error to an HTTP status.
func startStatus(err error) int {
	var fatal *copytrade.FatalMonitorError
	switch {
	case errors.Is(err, copytrade.ErrAlreadyRunning), errors.Is(err, bot.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.As(err, &fatal):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleCopyTradeStart(w http.ResponseWriter, r *http.Request) {
	var req copyTradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.opts.CopyTrade.Start(r.Context(), req.config()); err != nil {
		writeError(w, startStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "started", State: s.opts.CopyTrade.State()})
}

func (s *Server) handleCopyTradeStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.opts.CopyTrade.Stop(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "stopping", State: s.opts.CopyTrade.State()})
}

func (s *Server) handleCopyTradeState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.CopyTrade.State())
}

func (s *Server) handleCopyTradeTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trades, err := s.opts.Trades.ListRecent(r.Context(), limit)
	if err != nil {
		s.opts.Logger.WithError(err).Error("list detected trades")
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []*domain.DetectedTrade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleCopyTradeStats(w http.ResponseWriter, _ *http.Request) {
	target := s.opts.CopyTrade.Config().TargetWallet
	writeJSON(w, http.StatusOK, s.opts.CopyTrade.Stats().Snapshot(target))
}

func (s *Server) handleCopyTradeSummary(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.opts.CopyTrade.Stats().Format()))
}

// handleCopyTradeHistory returns stored funnel snapshots for a wallet.
// from and to are Unix ms; the default window is the last 24 hours.
func (s *Server) handleCopyTradeHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Snapshots == nil {
		writeError(w, http.StatusNotImplemented, "snapshot history is not configured")
		return
	}
	q := r.URL.Query()
	target := q.Get("wallet")
	if target == "" {
		target = s.opts.CopyTrade.Config().TargetWallet
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}

	now := time.Now().UnixMilli()
	from, err := parseInt64(q.Get("from"), now-24*time.Hour.Milliseconds())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := parseInt64(q.Get("to"), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}
	if from > to {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	snaps, err := s.opts.Snapshots.GetByTimeRange(r.Context(), target, from, to)
	if err != nil {
		s.opts.Logger.WithError(err).Error("query pipeline snapshots")
		writeError(w, http.StatusInternalServerError, "failed to query snapshots")
		return
	}
	if snaps == nil {
		snaps = []*domain.PipelineSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleBundleStart(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cfg := bot.BundleConfig{
		Venue:              req.Venue,
		TokenMint:          req.TokenMint,
		Direction:          req.Direction,
		AmountSOL:          req.AmountSOL,
		SlippageBps:        req.SlippageBps,
		WalletIDs:          req.WalletIDs,
		Rounds:             req.Rounds,
		DelayBetweenRounds: time.Duration(req.DelayBetweenRoundsMs) * time.Millisecond,
		SellPercentage:     req.SellPercentage,
	}
	if err := s.opts.Bots.StartBundle(r.Context(), cfg); err != nil {
		writeError(w, startStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "started", State: s.opts.Bots.State()})
}

func (s *Server) handleVolumeStart(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cfg := bot.VolumeConfig{
		Venue:          req.Venue,
		TokenMint:      req.TokenMint,
		BuyAmountSOL:   req.BuyAmountSOL,
		SlippageBps:    req.SlippageBps,
		WalletIDs:      req.WalletIDs,
		MinDelay:       time.Duration(req.MinDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(req.MaxDelayMs) * time.Millisecond,
		SellPercentage: req.SellPercentage,
		MaxRounds:      req.MaxRounds,
	}
	if err := s.opts.Bots.StartVolume(r.Context(), cfg); err != nil {
		writeError(w, startStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "started", State: s.opts.Bots.State()})
}

func (s *Server) handleBotStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.opts.Bots.Stop(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "stopping", State: s.opts.Bots.State()})
}

func (s *Server) handleBotState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Bots.State())
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.opts.Transactions.ListRecent(r.Context(), limit)
	if err != nil {
		s.opts.Logger.WithError(err).Error("list transactions")
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if records == nil {
		records = []*domain.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.opts.Transactions.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction "+id+" not found")
		return
	}
	if err != nil {
		s.opts.Logger.WithError(err).WithField("id", id).Error("get transaction")
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := s.opts.Transactions.Clear(r.Context())
	if err != nil {
		s.opts.Logger.WithError(err).Error("clear transactions")
		writeError(w, http.StatusInternalServerError, "failed to clear transactions")
		return
	}
	s.opts.Logger.WithField("deleted", n).Info("transaction history cleared")
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.opts.Wallets.ListWallets(r.Context())
	if err != nil {
		s.opts.Logger.WithError(err).Error("list wallets")
		writeError(w, http.StatusInternalServerError, "failed to list wallets")
		return
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

type quoteResponse struct {
	Venue          string  `json:"venue"`
	InputMint      string  `json:"inputMint"`
	OutputMint     string  `json:"outputMint"`
	InputAmount    string  `json:"inputAmount"`
	OutputAmount   string  `json:"outputAmount"`
	PriceImpactPct float64 `json:"priceImpactPct"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	adapter, err := s.opts.Venues.Lookup(q.Get("venue"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := domain.SwapParams{
		InputMint:   q.Get("inputMint"),
		OutputMint:  q.Get("outputMint"),
		SlippageBps: 50,
		Payer:       q.Get("payer"),
	}
	if params.InputMint == "" || params.OutputMint == "" {
		writeError(w, http.StatusBadRequest, "inputMint and outputMint are required")
		return
	}
	if params.Amount, err = strconv.ParseUint(q.Get("amount"), 10, 64); err != nil || params.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive integer in smallest units")
		return
	}
	if v := q.Get("slippageBps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < domain.MinSlippageBps || n > domain.MaxSlippageBps {
			writeError(w, http.StatusBadRequest, "slippageBps out of range")
			return
		}
		params.SlippageBps = n
	}

	quote, err := adapter.Quote(r.Context(), params)
	if err != nil {
		var qe *venue.QuoteError
		status := http.StatusInternalServerError
		if errors.As(err, &qe) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Venue:          quote.Venue,
		InputMint:      quote.InputMint,
		OutputMint:     quote.OutputMint,
		InputAmount:    strconv.FormatUint(quote.InputAmount, 10),
		OutputAmount:   strconv.FormatUint(quote.OutputAmount, 10),
		PriceImpactPct: quote.PriceImpactPct,
	})
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n, nil
}

func parseInt64(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
