package dedupe

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"hello", "hello", 100},
		{"", "", 100},
		{"hello", "", 0},
		{"", "hello", 0},
		{"Hello", "hello", 100},
		{"Amazon Purchase!", "Amazon Purchase", 94},
		{"abc", "xyz", 0},
		{"kitten", "sitting", 57},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Similarity(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
		assert.Equal(t, Similarity(tc.a, tc.b), Similarity(tc.b, tc.a), "symmetric %q vs %q", tc.a, tc.b)
	}
}

func TestSimilarity_DecreasesWithDifferences(t *testing.T) {
	base := "coffee shop downtown"
	one := Similarity(base, "coffee shop downtow")
	two := Similarity(base, "coffee shop downt")
	assert.Greater(t, one, two)
}

func TestNormalizeCompanyName(t *testing.T) {
	tests := map[string]string{
		"Acme Inc":             "acme",
		"Acme, Inc.":           "acme",
		"  ACME   Corporation": "acme",
		"Gamma LLC":            "gamma",
		"Gamma L.L.C.":         "gamma",
		"Beta Ltd.":            "beta",
		"Beta Limited,":        "beta",
		"Delta Corp":           "delta",
		"Incredible Things":    "incredible things",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCompanyName(in), in)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://acme.com", "acme.com", true},
		{"www.acme.com", "acme.com", true},
		{"HTTP://WWW.Acme.com:8080/about?x=1", "acme.com", true},
		{"acme.co.uk/path", "acme.co.uk", true},
		{"", "", false},
		{"localhost", "", false},
		{"not a url", "", false},
		{"https://", "", false},
	}
	for _, tc := range tests {
		got, ok := ExtractDomain(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTransactionStrategy_Threshold(t *testing.T) {
	existing := []ExistingTransaction{
		{ID: uuid.New(), Date: "2024-01-15", Amount: 100, Description: "Amazon Purchase"},
	}
	candidate := TransactionCandidate{Date: "2024-01-15", Amount: ptr(100), Description: "Amazon Purchase!"}

	res := Check[TransactionCandidate, ExistingTransaction](NewTransactionStrategy(90), candidate, existing)
	assert.True(t, res.IsDuplicate)
	require.NotNil(t, res.MatchedRecord)
	assert.Equal(t, existing[0].ID, res.MatchedRecord.ID)
	assert.Equal(t, 94, res.Similarity)
	assert.Equal(t, ReasonFuzzyDescription, res.MatchReason)

	res = Check[TransactionCandidate, ExistingTransaction](NewTransactionStrategy(95), candidate, existing)
	assert.False(t, res.IsDuplicate)
	assert.Nil(t, res.MatchedRecord)
	assert.Equal(t, ReasonNone, res.MatchReason)
}

func TestTransactionStrategy_Gates(t *testing.T) {
	existing := ExistingTransaction{Date: "2024-01-15", Amount: 100, Description: "Coffee"}
	s := NewTransactionStrategy(0)
	assert.Equal(t, DefaultThreshold, s.Threshold)

	tests := []struct {
		name string
		c    TransactionCandidate
		dup  bool
	}{
		{"same", TransactionCandidate{Date: "2024-01-15", Amount: ptr(100), Description: "coffee"}, true},
		{"within tolerance", TransactionCandidate{Date: "2024-01-15", Amount: ptr(100.005), Description: "Coffee"}, true},
		{"other date format", TransactionCandidate{Date: "01/15/2024", Amount: ptr(100), Description: "Coffee"}, true},
		{"amount off", TransactionCandidate{Date: "2024-01-15", Amount: ptr(100.5), Description: "Coffee"}, false},
		{"date off", TransactionCandidate{Date: "2024-01-16", Amount: ptr(100), Description: "Coffee"}, false},
		{"no amount", TransactionCandidate{Date: "2024-01-15", Description: "Coffee"}, false},
		{"bad date", TransactionCandidate{Date: "soon", Amount: ptr(100), Description: "Coffee"}, false},
		{"different text", TransactionCandidate{Date: "2024-01-15", Amount: ptr(100), Description: "Rent"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.dup, s.Compare(tc.c, existing).Duplicate)
		})
	}
}

func TestCheck_PicksBestMatch(t *testing.T) {
	existing := []ExistingTransaction{
		{ID: uuid.New(), Date: "2024-01-15", Amount: 10, Description: "Coffee Shop 12"},
		{ID: uuid.New(), Date: "2024-01-15", Amount: 10, Description: "Coffee Shop"},
		{ID: uuid.New(), Date: "2024-01-15", Amount: 10, Description: "Coffee Shop"},
	}
	c := TransactionCandidate{Date: "2024-01-15", Amount: ptr(10), Description: "Coffee Shop"}

	res := Check[TransactionCandidate, ExistingTransaction](NewTransactionStrategy(70), c, existing)
	require.True(t, res.IsDuplicate)
	assert.Equal(t, 100, res.Similarity)
	assert.Equal(t, existing[1].ID, res.MatchedRecord.ID)
}

func TestLeadStrategy(t *testing.T) {
	acme := ExistingLead{ID: uuid.New(), Name: "Acme Inc", Website: "https://acme.com"}
	gamma := ExistingLead{ID: uuid.New(), Name: "Gamma LLC"}
	existing := []ExistingLead{acme, gamma}

	tests := []struct {
		name   string
		c      LeadCandidate
		dup    bool
		reason MatchReason
		id     uuid.UUID
	}{
		{"name and domain", LeadCandidate{Name: "Acme Inc", Website: "www.acme.com"}, true, ReasonExactNameAndDomain, acme.ID},
		{"name only, no websites", LeadCandidate{Name: "Gamma LLC"}, true, ReasonExactName, gamma.ID},
		{"suffix variants", LeadCandidate{Name: "gamma, l.l.c."}, true, ReasonExactName, gamma.ID},
		{"different domain", LeadCandidate{Name: "Acme Inc", Website: "https://differentacme.com"}, false, ReasonNone, uuid.Nil},
		{"one-sided website", LeadCandidate{Name: "Gamma LLC", Website: "gamma.io"}, false, ReasonNone, uuid.Nil},
		{"missing website against website", LeadCandidate{Name: "Acme"}, false, ReasonNone, uuid.Nil},
		{"empty name", LeadCandidate{Name: ",."}, false, ReasonNone, uuid.Nil},
		{"unparseable website against none", LeadCandidate{Name: "Gamma LLC", Website: "n/a"}, false, ReasonNone, uuid.Nil},
		{"blank website counts as none", LeadCandidate{Name: "Gamma LLC", Website: "  "}, true, ReasonExactName, gamma.ID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Check[LeadCandidate, ExistingLead](LeadStrategy{}, tc.c, existing)
			assert.Equal(t, tc.dup, res.IsDuplicate)
			assert.Equal(t, tc.reason, res.MatchReason)
			if tc.dup {
				require.NotNil(t, res.MatchedRecord)
				assert.Equal(t, tc.id, res.MatchedRecord.ID)
				assert.Equal(t, 100, res.Similarity)
			} else {
				assert.Nil(t, res.MatchedRecord)
			}
		})
	}
}

func TestCheckBatch_NoCrossCandidateMatching(t *testing.T) {
	candidates := []LeadCandidate{{Name: "Zeta Inc"}, {Name: "Zeta Inc"}, {Name: "Gamma LLC"}}
	existing := []ExistingLead{{ID: uuid.New(), Name: "Gamma"}}

	results := CheckBatch[LeadCandidate, ExistingLead](LeadStrategy{}, candidates, existing)
	require.Len(t, results, 3)
	assert.False(t, results[0].IsDuplicate)
	assert.False(t, results[1].IsDuplicate)
	assert.True(t, results[2].IsDuplicate)

	assert.Empty(t, CheckBatch[LeadCandidate, ExistingLead](LeadStrategy{}, nil, existing))
	assert.False(t, Check[LeadCandidate, ExistingLead](LeadStrategy{}, candidates[0], nil).IsDuplicate)
}
