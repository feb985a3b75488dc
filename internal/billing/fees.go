// internal/billing/fees.go
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/errs"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// Breakdown is the priced, itemized charge set for one member and period.
type Breakdown struct {
	MemberID     uuid.UUID                                `json:"member_id"`
	MemberNumber int                                      `json:"member_number"`
	Period       ledger.Period                            `json:"period"`
	Lines        []ledger.LineItem                        `json:"lines"`
	Totals       map[ledger.LineCategory]decimal.Decimal `json:"totals"`
	Total        decimal.Decimal                          `json:"total"`
	VisitIDs     []uuid.UUID                              `json:"visit_ids,omitempty"`
}

// AddLines appends lines, renumbers positions and refreshes totals.
func (b *Breakdown) AddLines(lines ...ledger.LineItem) {
	b.Lines = append(b.Lines, lines...)
	for i := range b.Lines {
		b.Lines[i].Position = i + 1
	}
	b.Totals = ledger.CategoryTotals(b.Lines)
	b.Total = ledger.SumSubtotals(b.Lines)
}

// FeeCalculator prices dues, mooring and visits.
type FeeCalculator struct {
	cfg Config
}

func NewFeeCalculator(cfg Config) *FeeCalculator {
	return &FeeCalculator{cfg: cfg}
}

// Calculate builds the breakdown for member in period. Only pending visits dated inside
// the period are billed. Interest is added separately.
func (c *FeeCalculator) Calculate(member membership.Member, period ledger.Period, vessels []membership.Vessel, visits []membership.Visit) (*Breakdown, error) {
	if period.IsZero() {
		return nil, errs.Invalid("period", "missing period")
	}
	b := &Breakdown{MemberID: member.ID, MemberNumber: member.Number, Period: period}

	lines := []ledger.LineItem{c.duesLine(period)}

	vessels = append([]membership.Vessel(nil), vessels...)
	sort.SliceStable(vessels, func(i, j int) bool {
		if vessels[i].Name != vessels[j].Name {
			return vessels[i].Name < vessels[j].Name
		}
		return vessels[i].ID.String() < vessels[j].ID.String()
	})
	for _, v := range vessels {
		if v.MemberID != member.ID {
			continue
		}
		line, err := c.MooringLine(v)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	billable := make([]membership.Visit, 0, len(visits))
	for _, v := range visits {
		if v.MemberID == member.ID && v.Status == membership.VisitPending && period.Contains(v.Date) {
			billable = append(billable, v)
		}
	}
	sort.SliceStable(billable, func(i, j int) bool {
		if !billable[i].Date.Equal(billable[j].Date) {
			return billable[i].Date.Before(billable[j].Date)
		}
		return billable[i].ID.String() < billable[j].ID.String()
	})
	for _, v := range billable {
		lines = append(lines, c.visitLine(v))
		b.VisitIDs = append(b.VisitIDs, v.ID)
	}

	b.AddLines(lines...)
	return b, nil
}

func (c *FeeCalculator) duesLine(period ledger.Period) ledger.LineItem {
	unit := c.cfg.BaseDue
	return ledger.LineItem{
		ID:          uuid.New(),
		Category:    ledger.CategoryDues,
		Description: fmt.Sprintf("Membership dues %s", period),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   &unit,
		Subtotal:    ledger.Round(unit, c.cfg.CurrencyPlaces),
	}
}

func (c *FeeCalculator) visitLine(v membership.Visit) ledger.LineItem {
	unit := v.UnitCost
	id := v.ID
	return ledger.LineItem{
		ID:          uuid.New(),
		Category:    ledger.CategoryVisits,
		Description: fmt.Sprintf("Visit %s (%d visitors)", v.Date.Format("2006-01-02"), v.VisitorCount),
		Quantity:    decimal.NewFromInt(int64(v.VisitorCount)),
		UnitPrice:   &unit,
		Subtotal:    ledger.Round(unit.Mul(decimal.NewFromInt(int64(v.VisitorCount))), c.cfg.CurrencyPlaces),
		VisitID:     &id,
	}
}

// MooringLine prices one vessel. Fixed tiers apply by category; everything else is per foot.
func (c *FeeCalculator) MooringLine(v membership.Vessel) (ledger.LineItem, error) {
	id := v.ID
	line := ledger.LineItem{
		ID:       uuid.New(),
		Category: ledger.CategoryMooring,
		VesselID: &id,
	}

	category := NormalizeCategory(v.Category)
	feet := v.Feet()
	if fee, tier, ok := c.fixedTier(category, feet); ok {
		line.Description = fmt.Sprintf("Mooring %s (%s)", v.Name, tier)
		line.Quantity = decimal.NewFromInt(1)
		line.UnitPrice = &fee
		line.Subtotal = ledger.Round(fee, c.cfg.CurrencyPlaces)
		return line, nil
	}

	if !feet.IsPositive() {
		return ledger.LineItem{}, errs.Invalid("vessel.length", "vessel %q has no length for per-foot mooring", v.Name)
	}
	rate := c.cfg.MooringPerFoot
	line.Description = fmt.Sprintf("Mooring %s (%s ft)", v.Name, feet.Round(2).String())
	line.Quantity = feet
	line.UnitPrice = &rate
	line.Subtotal = ledger.Round(feet.Mul(rate), c.cfg.CurrencyPlaces)
	return line, nil
}

func (c *FeeCalculator) fixedTier(category membership.VesselCategory, feet decimal.Decimal) (decimal.Decimal, string, bool) {
	switch category {
	case membership.CategoryCruiser, membership.CategorySailboat:
		return decimal.Zero, "", false
	case membership.CategoryDinghy, membership.CategoryOptimist, membership.CategoryJetSki, membership.CategoryATV:
		return c.cfg.StorageFee, "storage", true
	case membership.CategoryWindsurf, membership.CategoryKayak, membership.CategoryCanoe:
		return c.cfg.SmallCraftFee, "small craft", true
	case membership.CategoryMotorboat:
		if feet.IsPositive() && feet.LessThanOrEqual(c.cfg.SmallMotorboatMaxFeet) {
			return c.cfg.SmallMotorboatFee, "small motorboat", true
		}
	}
	return decimal.Zero, "", false
}

// NormalizeCategory maps spelling variants ("Jet-Ski", "jet ski") onto the known categories.
func NormalizeCategory(c membership.VesselCategory) membership.VesselCategory {
	s := strings.ToLower(strings.TrimSpace(string(c)))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	if s == "jetski" {
		s = string(membership.CategoryJetSki)
	}
	return membership.VesselCategory(s)
}
