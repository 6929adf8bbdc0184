package config

import "time"

const (
	// Reputation
	InitialReputation     = 1000
	MaxReputation         = 1000
	MinReputation         = 0
	ConfirmedReportBonus  = 50
	DismissedReportRefund = 0

	// Ban
	BanThresholdReputation = 500
	BanThresholdFrequency  = 5
	BanFrequencyWindow     = 24 * time.Hour
	BanLevel1Duration      = 30 * time.Minute
	BanLevel2Duration      = 6 * time.Hour
	BanLevel3Duration      = 24 * time.Hour
	BanRepeatLevel2Window  = 7 * 24 * time.Hour
	BanRepeatLevel3Window  = 30 * 24 * time.Hour

	// Matchmaking
	EndedSessionRetention = time.Hour
	MessagePollLimit      = 100
)

// ReportWeights maps a report category to the reputation penalty it
// carries. Unknown categories weigh nothing.
var ReportWeights = map[string]int{
	"spam":       5,
	"harassment": 50,
	"abuse":      250,
}
