package copytrade

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
)

// Funnel stage names, also used as Prometheus label values.
const (
	StagePoll             = "poll"
	StageSignatureFetched = "signature_fetched"
	StageFailedTx         = "failed_tx"
	StageParseError       = "parse_error"
	StageUnknownDex       = "unknown_dex"
	StageNoSwap           = "no_swap_detected"
	StageDirectionSkipped = "direction_skipped"
	StageTradeDetected    = "trade_detected"
	StageTradeReplicated  = "trade_replicated"
	StageTradeFailed      = "trade_failed"
)

// Stats counts how signatures flow through the copy-trade pipeline.
// Safe for concurrent use.
type Stats struct {
	totalPolls        atomic.Int64
	signaturesFetched atomic.Int64
	failedTx          atomic.Int64
	parseError        atomic.Int64
	unknownDex        atomic.Int64
	noSwapDetected    atomic.Int64
	directionSkipped  atomic.Int64
	tradesDetected    atomic.Int64
	tradesReplicated  atomic.Int64
	tradesFailed      atomic.Int64
	lastCycleAt       atomic.Int64 // unix ms, 0 = never
}

func (s *Stats) counter(stage string) *atomic.Int64 {
	switch stage {
	case StagePoll:
		return &s.totalPolls
	case StageSignatureFetched:
		return &s.signaturesFetched
	case StageFailedTx:
		return &s.failedTx
	case StageParseError:
		return &s.parseError
	case StageUnknownDex:
		return &s.unknownDex
	case StageNoSwap:
		return &s.noSwapDetected
	case StageDirectionSkipped:
		return &s.directionSkipped
	case StageTradeDetected:
		return &s.tradesDetected
	case StageTradeReplicated:
		return &s.tradesReplicated
	case StageTradeFailed:
		return &s.tradesFailed
	}
	return nil
}

// Incr adds one to stage.
func (s *Stats) Incr(stage string) {
	s.Add(stage, 1)
}

// Add adds n to stage and mirrors it to Prometheus. Unknown stages are ignored.
func (s *Stats) Add(stage string, n int) {
	c := s.counter(stage)
	if c == nil || n <= 0 {
		return
	}
	c.Add(int64(n))
	observability.RecordFunnel(stage, n)
}

// MarkCycle records the time of the latest completed poll.
func (s *Stats) MarkCycle(t time.Time) {
	ms := t.UnixMilli()
	s.lastCycleAt.Store(ms)
	observability.RecordCycle(ms)
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	for _, c := range []*atomic.Int64{
		&s.totalPolls, &s.signaturesFetched, &s.failedTx, &s.parseError,
		&s.unknownDex, &s.noSwapDetected, &s.directionSkipped,
		&s.tradesDetected, &s.tradesReplicated, &s.tradesFailed, &s.lastCycleAt,
	} {
		c.Store(0)
	}
}

// Snapshot returns a copy of the counters for targetWallet.
func (s *Stats) Snapshot(targetWallet string) domain.PipelineSnapshot {
	return domain.PipelineSnapshot{
		TargetWallet:      targetWallet,
		TotalPolls:        s.totalPolls.Load(),
		SignaturesFetched: s.signaturesFetched.Load(),
		FailedTx:          s.failedTx.Load(),
		ParseError:        s.parseError.Load(),
		UnknownDex:        s.unknownDex.Load(),
		NoSwapDetected:    s.noSwapDetected.Load(),
		DirectionSkipped:  s.directionSkipped.Load(),
		TradesDetected:    s.tradesDetected.Load(),
		TradesReplicated:  s.tradesReplicated.Load(),
		TradesFailed:      s.tradesFailed.Load(),
		LastCycleAt:       s.lastCycleAt.Load(),
	}
}

var countPrinter = message.NewPrinter(language.English)

// Format renders the funnel as an HTML operator summary.
func (s *Stats) Format() string {
	return FormatSnapshot(s.Snapshot(""))
}

// FormatSnapshot renders snap as the "Pipeline Funnel" summary.
func FormatSnapshot(snap domain.PipelineSnapshot) string {
	ts := "N/A"
	if snap.LastCycleAt > 0 {
		ts = time.UnixMilli(snap.LastCycleAt).UTC().Format(time.RFC3339)
	}
	n := func(v int64) string { return countPrinter.Sprintf("%d", v) }

	return fmt.Sprintf("🔧 <b>Pipeline Funnel</b> (last cycle @ %s)\n\n", ts) +
		fmt.Sprintf("Polls completed: %s\n", n(snap.TotalPolls)) +
		fmt.Sprintf("Signatures fetched: %s\n\n", n(snap.SignaturesFetched)) +
		"--- FILTER BREAKDOWN ---\n" +
		fmt.Sprintf("Failed tx:          %s\n", n(snap.FailedTx)) +
		fmt.Sprintf("Parse error:        %s\n", n(snap.ParseError)) +
		fmt.Sprintf("Unknown DEX:        %s\n", n(snap.UnknownDex)) +
		fmt.Sprintf("No swap detected:   %s\n", n(snap.NoSwapDetected)) +
		fmt.Sprintf("Direction skipped:  %s\n\n", n(snap.DirectionSkipped)) +
		"--- RESULTS ---\n" +
		fmt.Sprintf("Trades detected:    %s\n", n(snap.TradesDetected)) +
		fmt.Sprintf("Replicated:         %s\n", n(snap.TradesReplicated)) +
		fmt.Sprintf("Failed:             %s", n(snap.TradesFailed))
}
