package domain

// PipelineSnapshot is a point-in-time copy of the copy-trade funnel counters.
// Corresponds to pipeline_snapshots table in ClickHouse.
type PipelineSnapshot struct {
	TargetWallet      string `json:"targetWallet"`
	TotalPolls        int64  `json:"totalPolls"`
	SignaturesFetched int64  `json:"signaturesFetched"`
	FailedTx          int64  `json:"failedTx"`
	ParseError        int64  `json:"parseError"`
	UnknownDex        int64  `json:"unknownDex"`
	NoSwapDetected    int64  `json:"noSwapDetected"`
	DirectionSkipped  int64  `json:"directionSkipped"`
	TradesDetected    int64  `json:"tradesDetected"`
	TradesReplicated  int64  `json:"tradesReplicated"`
	TradesFailed      int64  `json:"tradesFailed"`
	LastCycleAt       int64  `json:"lastCycleAt"` // Unix ms, 0 before the first cycle
}
