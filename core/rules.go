package core

// Game configuration.
const (
	MinPlayers        = 3
	MaxPlayers        = 10
	MinArgumentLength = 20
	MaxArgumentLength = 500

	// ArgumentTimeSeconds and VoteTimeSeconds are advisory limits for clients.
	// Phases advance only when every member has acted.
	ArgumentTimeSeconds = 180
	VoteTimeSeconds     = 120
)

// Scoring weights in percent; they sum to 100.
const (
	ValidatorWeight = 60
	CommunityWeight = 40
)

const (
	// AgreementThreshold is the minimum cross-validator similarity the scoring
	// oracle must reach before returning a result.
	AgreementThreshold = 0.85

	// XPPerPoint converts a total score into experience.
	XPPerPoint = 10

	LeaderboardSize = 100

	SecondsPerWeek = 7 * 24 * 60 * 60
)

// WeekNumber buckets a unix timestamp (seconds) into a week index.
func WeekNumber(ts int64) int64 {
	return ts / SecondsPerWeek
}
