package domain

// BotStatus is the run state of a bot or monitor.
type BotStatus string

// Bot status constants
const (
	BotStatusIdle     BotStatus = "idle"
	BotStatusRunning  BotStatus = "running"
	BotStatusStopping BotStatus = "stopping"
	BotStatusError    BotStatus = "error"
)

// BotState is a point-in-time snapshot exposed to the presentation layer.
type BotState struct {
	Status          BotStatus `json:"status"`
	Mode            BotMode   `json:"mode,omitempty"`
	CurrentRound    int       `json:"currentRound"`
	TotalRounds     int       `json:"totalRounds"`
	TradesCompleted int       `json:"tradesCompleted"`
	TradesFailed    int       `json:"tradesFailed"`
	StartedAt       *int64    `json:"startedAt"` // Unix ms
	Error           *string   `json:"error"`
}
