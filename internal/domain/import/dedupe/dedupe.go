package dedupe

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-import/internal/domain/import/normalizer"
)

// DefaultThreshold is the minimum description similarity for a transaction
// to count as a duplicate.
const DefaultThreshold = 80

// amountTolerance absorbs float rounding between parsed and stored amounts.
const amountTolerance = 0.01

// MatchReason names the rule that flagged a duplicate.
type MatchReason string

const (
	ReasonExactNameAndDomain MatchReason = "exact_name_and_domain"
	ReasonExactName          MatchReason = "exact_name"
	ReasonFuzzyDescription   MatchReason = "fuzzy_description"
	ReasonNone               MatchReason = "none"
)

// Match is the outcome of comparing one candidate against one existing record.
type Match struct {
	Duplicate  bool
	Similarity int
	Reason     MatchReason
}

var noMatch = Match{Reason: ReasonNone}

// Strategy holds the entity-specific matching rule.
type Strategy[C, E any] interface {
	Compare(candidate C, existing E) Match
}

// Result reports whether a candidate duplicates an existing record.
type Result[E any] struct {
	IsDuplicate   bool        `json:"isDuplicate" yaml:"is_duplicate"`
	MatchedRecord *E          `json:"matchedRecord" yaml:"matched_record"`
	Similarity    int         `json:"similarity" yaml:"similarity"`
	MatchReason   MatchReason `json:"matchReason" yaml:"match_reason"`
}

// Check compares candidate against every existing record and returns the
// best match. Ties keep the earliest existing record.
func Check[C, E any](s Strategy[C, E], candidate C, existing []E) Result[E] {
	res := Result[E]{MatchReason: ReasonNone}
	for i := range existing {
		m := s.Compare(candidate, existing[i])
		if !m.Duplicate {
			continue
		}
		if res.IsDuplicate && m.Similarity <= res.Similarity {
			continue
		}
		res = Result[E]{
			IsDuplicate:   true,
			MatchedRecord: &existing[i],
			Similarity:    m.Similarity,
			MatchReason:   m.Reason,
		}
		if m.Similarity == 100 {
			break
		}
	}
	return res
}

// CheckBatch runs Check for each candidate against the same existing set.
// Candidates are not compared with each other; results keep candidate order.
func CheckBatch[C, E any](s Strategy[C, E], candidates []C, existing []E) []Result[E] {
	out := make([]Result[E], len(candidates))
	for i, c := range candidates {
		out[i] = Check(s, c, existing)
	}
	return out
}

// TransactionCandidate is the part of a new transaction used for matching.
// A nil Amount never matches.
type TransactionCandidate struct {
	Date        string   `json:"date" yaml:"date"`
	Amount      *float64 `json:"amount" yaml:"amount"`
	Description string   `json:"description" yaml:"description"`
}

// ExistingTransaction is a stored transaction projected for matching.
type ExistingTransaction struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Date        string    `json:"date" yaml:"date"`
	Amount      float64   `json:"amount" yaml:"amount"`
	Description string    `json:"description" yaml:"description"`
}

// TransactionStrategy flags a transaction with the same date, the same
// amount and a description at least Threshold percent similar.
type TransactionStrategy struct {
	Threshold int
}

// NewTransactionStrategy returns a strategy with threshold, or
// DefaultThreshold when threshold is outside 1..100.
func NewTransactionStrategy(threshold int) TransactionStrategy {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return TransactionStrategy{Threshold: threshold}
}

func (s TransactionStrategy) Compare(c TransactionCandidate, e ExistingTransaction) Match {
	if c.Amount == nil {
		return noMatch
	}
	cd, err := normalizer.ParseDate(c.Date)
	if err != nil {
		return noMatch
	}
	ed, err := normalizer.ParseDate(e.Date)
	if err != nil || cd != ed {
		return noMatch
	}
	if math.Abs(*c.Amount-e.Amount) > amountTolerance {
		return noMatch
	}

	sim := Similarity(c.Description, e.Description)
	if sim < s.Threshold {
		return noMatch
	}
	return Match{Duplicate: true, Similarity: sim, Reason: ReasonFuzzyDescription}
}

// LeadCandidate is the part of a new lead used for matching.
type LeadCandidate struct {
	Name    string `json:"name" yaml:"name"`
	Website string `json:"website" yaml:"website"`
}

// ExistingLead is a stored lead projected for matching.
type ExistingLead struct {
	ID      uuid.UUID `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Website string    `json:"website" yaml:"website"`
}

// LeadStrategy flags a lead whose normalized company name is equal and
// whose domains agree. When neither side has a website at all, the name
// alone decides. A website on only one side, an unparseable website or two
// different domains never match.
type LeadStrategy struct{}

func (LeadStrategy) Compare(c LeadCandidate, e ExistingLead) Match {
	cn := NormalizeCompanyName(c.Name)
	if cn == "" || cn != NormalizeCompanyName(e.Name) {
		return noMatch
	}

	cd, cok := ExtractDomain(c.Website)
	ed, eok := ExtractDomain(e.Website)
	switch {
	case cok && eok && cd == ed:
		return Match{Duplicate: true, Similarity: 100, Reason: ReasonExactNameAndDomain}
	case strings.TrimSpace(c.Website) == "" && strings.TrimSpace(e.Website) == "":
		return Match{Duplicate: true, Similarity: 100, Reason: ReasonExactName}
	default:
		return noMatch
	}
}
