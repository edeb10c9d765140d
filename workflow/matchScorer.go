package workflow

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The scorer is a pure function over two flat records. No database, no clock,
// no globals: callers map their rows into TransactionRecord / CandidateRecord
// and the same inputs always score the same.

// TransactionRecord is the bank statement side of a comparison.
type TransactionRecord struct {
	Amount          decimal.Decimal
	TransactionDate time.Time
	ReferenceNumber string
	Description     string
}

// CandidateRecord is the book side: a ledger entry or an invoice.
type CandidateRecord struct {
	Amount           decimal.Decimal
	RecordDate       time.Time
	ReferenceNumber  string
	CounterpartyName string
}

// MatchScore is the scored comparison. Confidence is in [0, 1]; Reasons
// explains each factor's contribution for review screens.
type MatchScore struct {
	Confidence float64
	Reasons    []string
}

// AmountTier maps a maximum relative amount difference to a factor score.
type AmountTier struct {
	MaxDiffPercent float64
	Score          float64
}

// DateTier maps a maximum day distance to a factor score.
type DateTier struct {
	MaxDays int
	Score   float64
}

// ScorerConfig carries the factor weights and tier tables. Weights must sum
// to 1 for the confidence to stay in [0, 1].
type ScorerConfig struct {
	AmountWeight    float64
	DateWeight      float64
	ReferenceWeight float64
	NameWeight      float64

	AmountTiers []AmountTier
	DateTiers   []DateTier

	// PartialReferenceScore applies when one reference contains the other.
	PartialReferenceScore float64
	// MinTokenLength filters noise words out of name/description overlap.
	MinTokenLength int
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		AmountWeight:    0.40,
		DateWeight:      0.30,
		ReferenceWeight: 0.20,
		NameWeight:      0.10,
		AmountTiers: []AmountTier{
			{MaxDiffPercent: 0, Score: 1.0},
			{MaxDiffPercent: 1, Score: 0.875},
			{MaxDiffPercent: 5, Score: 0.625},
			{MaxDiffPercent: 10, Score: 0.375},
		},
		DateTiers: []DateTier{
			{MaxDays: 0, Score: 1.0},
			{MaxDays: 1, Score: 0.83},
			{MaxDays: 3, Score: 0.67},
			{MaxDays: 7, Score: 0.5},
			{MaxDays: 14, Score: 0.33},
		},
		PartialReferenceScore: 0.75,
		MinTokenLength:        3,
	}
}

// ScoreMatch scores one transaction/candidate pair. Factors are scored
// independently, weighted and summed; the result is capped at 1.
func ScoreMatch(cfg ScorerConfig, txn TransactionRecord, candidate CandidateRecord) MatchScore {
	reasons := make([]string, 0, 4)

	amountScore := scoreAmount(cfg, txn.Amount, candidate.Amount)
	reasons = append(reasons, fmt.Sprintf("amount: %.3f (txn=%s candidate=%s)",
		amountScore, txn.Amount, candidate.Amount))

	dateScore := scoreDate(cfg, txn.TransactionDate, candidate.RecordDate)
	reasons = append(reasons, fmt.Sprintf("date: %.3f (%d day(s) apart)",
		dateScore, daysApart(txn.TransactionDate, candidate.RecordDate)))

	referenceScore := scoreReference(cfg, txn.ReferenceNumber, txn.Description, candidate.ReferenceNumber)
	reasons = append(reasons, fmt.Sprintf("reference: %.3f", referenceScore))

	nameScore := scoreName(cfg, txn.Description, candidate.CounterpartyName)
	reasons = append(reasons, fmt.Sprintf("name: %.3f", nameScore))

	confidence := amountScore*cfg.AmountWeight +
		dateScore*cfg.DateWeight +
		referenceScore*cfg.ReferenceWeight +
		nameScore*cfg.NameWeight
	// the float weight sum carries binary dust (0.4+0.3+0.2+0.1 != 1.0);
	// snap to 6 decimal places so an exact all-factor match scores exactly 1
	confidence = math.Round(confidence*1e6) / 1e6
	if confidence > 1 {
		confidence = 1
	}

	return MatchScore{Confidence: confidence, Reasons: reasons}
}

// scoreAmount compares magnitudes: the bank amount is signed while book
// records carry positive totals.
func scoreAmount(cfg ScorerConfig, txnAmount, candidateAmount decimal.Decimal) float64 {
	a := txnAmount.Abs()
	b := candidateAmount.Abs()
	if a.Equal(b) {
		return tierForAmount(cfg, 0)
	}
	larger := decimal.Max(a, b)
	if larger.IsZero() {
		return tierForAmount(cfg, 0)
	}
	diffPercent, _ := a.Sub(b).Abs().Div(larger).Mul(decimal.NewFromInt(100)).Float64()
	return tierForAmount(cfg, diffPercent)
}

func tierForAmount(cfg ScorerConfig, diffPercent float64) float64 {
	for _, tier := range cfg.AmountTiers {
		if diffPercent <= tier.MaxDiffPercent {
			return tier.Score
		}
	}
	return 0
}

func scoreDate(cfg ScorerConfig, txnDate, candidateDate time.Time) float64 {
	days := daysApart(txnDate, candidateDate)
	for _, tier := range cfg.DateTiers {
		if days <= tier.MaxDays {
			return tier.Score
		}
	}
	return 0
}

func daysApart(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// scoreReference looks for the candidate's reference inside the transaction
// reference or description: verbatim hit scores full, a hyphen-split token
// hit scores partial.
func scoreReference(cfg ScorerConfig, txnRef, txnDescription, candidateRef string) float64 {
	candidate := normalizeReference(candidateRef)
	if candidate == "" {
		return 0
	}
	ref := normalizeReference(txnRef)
	description := normalizeReference(txnDescription)
	if strings.Contains(ref, candidate) || strings.Contains(description, candidate) {
		return 1
	}
	for _, token := range referenceTokens(candidateRef) {
		if len(token) <= cfg.MinTokenLength {
			continue
		}
		if strings.Contains(ref, token) || strings.Contains(description, token) {
			return cfg.PartialReferenceScore
		}
	}
	return 0
}

func normalizeReference(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func referenceTokens(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

// scoreName looks for counterparty-name tokens inside the bank description.
// Any token longer than the cutoff that appears scores full weight; short
// tokens (articles, initials) are skipped.
func scoreName(cfg ScorerConfig, txnDescription, counterpartyName string) float64 {
	description := strings.ToUpper(txnDescription)
	name := strings.ToUpper(strings.TrimSpace(counterpartyName))
	if description == "" || name == "" {
		return 0
	}
	if strings.Contains(description, name) {
		return 1
	}
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, token := range tokens {
		if len(token) <= cfg.MinTokenLength {
			continue
		}
		if strings.Contains(description, token) {
			return 1
		}
	}
	return 0
}
