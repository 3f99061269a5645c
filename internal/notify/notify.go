// Package notify delivers best-effort operator notifications.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"solana-swap-bot/internal/domain"
)

// Kind identifies a notification template.
type Kind string

// Notification kinds
const (
	KindTradeDetected Kind = "trade_detected"
	KindTxConfirmed   Kind = "tx_confirmed"
	KindTxFailed      Kind = "tx_failed"
	KindBotStarted    Kind = "bot_started"
	KindBotStopped    Kind = "bot_stopped"
	KindBotError      Kind = "bot_error"
)

// Event carries the fields used by the templates. Unused fields stay empty.
type Event struct {
	Kind         Kind
	Mode         domain.BotMode
	TokenMint    string
	Direction    domain.Direction
	AmountSOL    float64
	Venue        string
	Signature    string
	TargetWallet string
	Error        string
}

// Notifier sends an event to an operator channel. Failures must never affect trading.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

// TradeDetected builds a KindTradeDetected event from a detected trade.
func TradeDetected(t domain.DetectedTrade) Event {
	return Event{
		Kind:         KindTradeDetected,
		Mode:         domain.BotModeCopyTrade,
		TokenMint:    t.TokenMint,
		Direction:    t.Direction,
		AmountSOL:    t.AmountSOL,
		Venue:        t.Venue,
		Signature:    t.Signature,
		TargetWallet: t.TargetWallet,
	}
}

// TxOutcome builds a KindTxConfirmed or KindTxFailed event from a terminal record.
func TxOutcome(r domain.TransactionRecord) Event {
	e := Event{
		Kind:      KindTxConfirmed,
		Mode:      r.BotMode,
		TokenMint: r.TokenMint,
		Direction: r.Direction,
		AmountSOL: r.AmountSOL,
		Venue:     r.Venue,
		Signature: r.Signature,
	}
	if r.Status != domain.TxStatusConfirmed {
		e.Kind = KindTxFailed
		if r.Error != nil {
			e.Error = *r.Error
		}
	}
	return e
}

// FormatHTML renders e as a Telegram HTML message.
func FormatHTML(e Event) string {
	dir := strings.ToUpper(string(e.Direction))
	mode := html.EscapeString(string(e.Mode))

	switch e.Kind {
	case KindTradeDetected:
		return fmt.Sprintf("🔍 <b>TRADE DETECTED</b>\n%s on %s\nToken: <code>%s</code>\nAmount: %.4f SOL\nTarget: <code>%s</code>",
			dir, html.EscapeString(e.Venue), short(e.TokenMint, 8), e.AmountSOL, short(e.TargetWallet, 8))
	case KindTxConfirmed:
		return fmt.Sprintf("✅ <b>TX CONFIRMED</b>\n%s %.4f SOL\nToken: <code>%s</code>\nDEX: %s | Mode: %s\nSig: <code>%s</code>",
			dir, e.AmountSOL, short(e.TokenMint, 8), html.EscapeString(e.Venue), mode, short(e.Signature, 12))
	case KindTxFailed:
		errText := e.Error
		if errText == "" {
			errText = "Unknown"
		}
		return fmt.Sprintf("❌ <b>TX FAILED</b>\n%s %.4f SOL\nToken: <code>%s</code>\nDEX: %s | Mode: %s\nError: %s",
			dir, e.AmountSOL, short(e.TokenMint, 8), html.EscapeString(e.Venue), mode, html.EscapeString(errText))
	case KindBotStarted:
		return fmt.Sprintf("🚀 <b>BOT STARTED</b>\nMode: %s", mode)
	case KindBotStopped:
		return fmt.Sprintf("🛑 <b>BOT STOPPED</b>\nMode: %s", mode)
	case KindBotError:
		return fmt.Sprintf("⚠️ <b>BOT ERROR</b>\nMode: %s\nError: %s", mode, html.EscapeString(e.Error))
	default:
		return html.EscapeString(string(e.Kind))
	}
}

func short(s string, n int) string {
	if len(s) <= n {
		return html.EscapeString(s)
	}
	return html.EscapeString(s[:n]) + "..."
}
