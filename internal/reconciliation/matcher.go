// internal/reconciliation/matcher.go
package reconciliation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// Tier is a discrete confidence bucket, A highest.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
	TierE Tier = "E"
	TierF Tier = "F"
)

// Confidence percentages per tier.
const (
	ConfidenceReference  = 100
	ConfidenceNationalID = 95
	ConfidenceFullName   = 85
	ConfidenceSurname    = 70
	ConfidencePartial    = 50
	ConfidenceNone       = 0
)

const minPartialTokenLen = 3

// RosterEntry is a member prepared for matching.
type RosterEntry struct {
	MemberID   uuid.UUID
	Number     int
	NationalID string
	Surname    string
	GivenNames []string
	NameTokens []string
	References map[string]bool
}

// NewRoster folds member names once. refs holds each member's known payment references.
func NewRoster(members []membership.Member, refs map[uuid.UUID][]string) []RosterEntry {
	roster := make([]RosterEntry, 0, len(members))
	for _, m := range members {
		e := RosterEntry{
			MemberID:   m.ID,
			Number:     m.Number,
			NationalID: membership.NormalizeNationalID(m.NationalID),
			Surname:    strings.Join(Tokens(m.Surname()), " "),
			GivenNames: Tokens(strings.Join(m.GivenNames(), " ")),
			NameTokens: Tokens(m.FirstName + " " + m.LastName),
			References: map[string]bool{},
		}
		for _, r := range refs[m.ID] {
			if n := ledger.NormalizeReference(r); n != "" {
				e.References[n] = true
			}
		}
		roster = append(roster, e)
	}
	return roster
}

// MatchResult is the matcher's suggestion for one transaction.
type MatchResult struct {
	Tier       Tier       `json:"tier"`
	Confidence int        `json:"confidence"`
	MemberID   *uuid.UUID `json:"member_id,omitempty"`
	Reason     string     `json:"reason"`
	Runners    int        `json:"runners"`
}

// Matcher scores transactions against the roster. It holds no state.
type Matcher struct{}

type scored struct {
	entry  *RosterEntry
	tier   Tier
	score  int
	reason string
}

// Match returns the best member for tx. Ties resolve by score, then surname, then member
// number, so repeated calls on the same input agree.
func (Matcher) Match(tx BankTransaction, roster []RosterEntry) MatchResult {
	ids := ExtractIdentifiers(tx.Description)
	nids := map[string]bool{}
	if tx.NationalID != "" {
		nids[membership.NormalizeNationalID(tx.NationalID)] = true
	}
	for _, n := range ids.NationalIDs {
		nids[n] = true
	}
	refs := map[string]bool{}
	if tx.Reference != "" {
		refs[ledger.NormalizeReference(tx.Reference)] = true
	}
	for _, r := range ids.References {
		refs[r] = true
	}
	refList := make([]string, 0, len(refs))
	for r := range refs {
		refList = append(refList, r)
	}
	sort.Strings(refList)
	words := map[string]bool{}
	for _, t := range Tokens(tx.Description + " " + tx.Surname + " " + tx.GivenName) {
		words[t] = true
	}

	var candidates []scored
	for i := range roster {
		if s := score(&roster[i], refList, nids, words); s.score > 0 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return MatchResult{Tier: TierF, Confidence: ConfidenceNone, Reason: "no usable match"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.entry.Surname != b.entry.Surname {
			return a.entry.Surname < b.entry.Surname
		}
		return a.entry.Number < b.entry.Number
	})

	best := candidates[0]
	id := best.entry.MemberID
	runners := 0
	for _, c := range candidates[1:] {
		if c.score == best.score {
			runners++
		}
	}
	reason := best.reason
	if runners > 0 {
		reason = fmt.Sprintf("%s (%d other member(s) tie)", reason, runners)
	}
	return MatchResult{Tier: best.tier, Confidence: best.score, MemberID: &id, Reason: reason, Runners: runners}
}

func score(e *RosterEntry, refs []string, nids, words map[string]bool) scored {
	for _, r := range refs {
		if e.References[r] {
			return scored{entry: e, tier: TierA, score: ConfidenceReference, reason: fmt.Sprintf("bank reference %s", r)}
		}
	}
	if e.NationalID != "" && nids[e.NationalID] {
		return scored{entry: e, tier: TierB, score: ConfidenceNationalID, reason: "national id in description"}
	}

	surname := e.Surname != "" && containsAll(words, strings.Fields(e.Surname))
	if surname && len(e.GivenNames) > 0 && containsAll(words, e.GivenNames) {
		return scored{entry: e, tier: TierC, score: ConfidenceFullName, reason: "surname and given names"}
	}
	if surname {
		return scored{entry: e, tier: TierD, score: ConfidenceSurname, reason: "surname only"}
	}

	for _, t := range e.NameTokens {
		if len(t) >= minPartialTokenLen && words[t] {
			return scored{entry: e, tier: TierE, score: ConfidencePartial, reason: fmt.Sprintf("name token %q", t)}
		}
	}
	return scored{entry: e, tier: TierF, score: ConfidenceNone}
}

func containsAll(words map[string]bool, tokens []string) bool {
	for _, t := range tokens {
		if !words[t] {
			return false
		}
	}
	return len(tokens) > 0
}
