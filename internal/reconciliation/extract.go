// internal/reconciliation/extract.go
package reconciliation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

var (
	reNationalID = regexp.MustCompile(`\b(\d{1,2}\.?\d{3}\.?\d{3})-([\dkK])\b`)
	reLabeledID  = regexp.MustCompile(`(?i)\brut\b[\s.:#-]*(\d{1,2}\.?\d{3}\.?\d{3})-?([\dk])\b`)
	reReference  = regexp.MustCompile(`(?i)\b(?:ref|referencia|op|operacion|operación|nro|doc|comprobante)\b[\s.:#°º-]*(?:n[°º.]?[\s:#-]*)?([0-9]{4,})`)
	reToken      = regexp.MustCompile(`[a-z0-9]+`)
)

// Identifiers are the structured fragments found in a free-text bank description.
type Identifiers struct {
	NationalIDs []string `json:"national_ids,omitempty"`
	References  []string `json:"references,omitempty"`
	Tokens      []string `json:"tokens,omitempty"`
}

// ExtractIdentifiers pulls national ids, bank references and name tokens out of description.
// National ids come back normalized, references without leading zeros.
func ExtractIdentifiers(description string) Identifiers {
	var ids Identifiers
	seen := map[string]bool{}

	matches := append(reNationalID.FindAllStringSubmatch(description, -1), reLabeledID.FindAllStringSubmatch(description, -1)...)
	for _, m := range matches {
		nid := membership.NormalizeNationalID(m[1] + m[2])
		if nid != "" && !seen["n"+nid] {
			seen["n"+nid] = true
			ids.NationalIDs = append(ids.NationalIDs, nid)
		}
	}
	for _, m := range reReference.FindAllStringSubmatch(description, -1) {
		ref := ledger.NormalizeReference(m[1])
		if ref != "" && !seen["r"+ref] {
			seen["r"+ref] = true
			ids.References = append(ids.References, ref)
		}
	}

	stripped := reLabeledID.ReplaceAllString(description, " ")
	stripped = reNationalID.ReplaceAllString(stripped, " ")
	stripped = reReference.ReplaceAllString(stripped, " ")
	ids.Tokens = Tokens(stripped)
	return ids
}

// Fold lower-cases s and strips diacritics ("Muñoz" -> "munoz").
func Fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokens splits folded s into alphanumeric words.
func Tokens(s string) []string {
	return reToken.FindAllString(Fold(s), -1)
}
