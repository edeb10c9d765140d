package config

import "time"

// Tuning knobs for the daily cycle and auto-matching. All overridable by env
// so ops can retune without a deploy.

// LockGracePeriod is the window after a day is locked during which
// adjustments are accepted without escalated approval.
//
// Set via env: CYCLE_GRACE_PERIOD_HOURS (default 72)
func LockGracePeriod() time.Duration {
	return time.Duration(IntFromEnv("CYCLE_GRACE_PERIOD_HOURS", 72)) * time.Hour
}

// AutoMatchThreshold is the minimum confidence for auto-applying a match.
//
// Set via env: RECON_AUTO_MATCH_THRESHOLD (default 0.8)
func AutoMatchThreshold() float64 {
	return FloatFromEnv("RECON_AUTO_MATCH_THRESHOLD", 0.8)
}

// SuggestThreshold is the minimum confidence for surfacing a suggestion.
//
// Set via env: RECON_SUGGEST_THRESHOLD (default 0.5)
func SuggestThreshold() float64 {
	return FloatFromEnv("RECON_SUGGEST_THRESHOLD", 0.5)
}

// CandidateAmountTolerancePercent bounds the candidate window by amount.
//
// Set via env: RECON_CANDIDATE_AMOUNT_TOLERANCE_PCT (default 10)
func CandidateAmountTolerancePercent() int {
	return IntFromEnv("RECON_CANDIDATE_AMOUNT_TOLERANCE_PCT", 10)
}

// CandidateDateWindowDays bounds the candidate window by date distance.
//
// Set via env: RECON_CANDIDATE_DATE_WINDOW_DAYS (default 14)
func CandidateDateWindowDays() int {
	return IntFromEnv("RECON_CANDIDATE_DATE_WINDOW_DAYS", 14)
}
