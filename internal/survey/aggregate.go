package survey

import "github.com/JonMunkholm/resilience/internal/catalog"

// MaxQuadrantScore is the highest total a single pole can reach.
const MaxQuadrantScore = catalog.PairsPerSection * MaxPoints

// Quadrant names, in chart and export order.
const (
	QuadrantDefensive   = "Defensive"
	QuadrantProgressive = "Progressive"
	QuadrantConsistent  = "Consistent"
	QuadrantFlexible    = "Flexible"
)

// Quadrants lists the four quadrant names in order.
var Quadrants = []string{QuadrantDefensive, QuadrantProgressive, QuadrantConsistent, QuadrantFlexible}

// IsValid reports whether a pair's allocation stays within the point budget.
func IsValid(pairID string, a Allocation) bool {
	return a.Sum() <= MaxPoints
}

// Validity computes the budget flag for every catalog pair.
func Validity(cat *catalog.Catalog, rs ResponseSet) map[string]bool {
	out := make(map[string]bool, cat.PairCount())
	for _, id := range cat.PairIDs() {
		out[id] = IsValid(id, rs.Get(id))
	}
	return out
}

// InvalidPairs returns the ids of over-budget pairs in catalog order.
func InvalidPairs(cat *catalog.Catalog, rs ResponseSet) []string {
	var ids []string
	for _, id := range cat.PairIDs() {
		if !IsValid(id, rs.Get(id)) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ComputeTotals sums each section's left and right components into its two
// named totals. Invalid allocations are counted as stored.
func ComputeTotals(cat *catalog.Catalog, rs ResponseSet) Totals {
	var t Totals
	for _, sec := range cat.Sections() {
		left, right := 0, 0
		for _, p := range sec.Pairs {
			a := rs.Get(p.ID)
			left += a.Left
			right += a.Right
		}

		switch sec.ID {
		case catalog.SectionDefensiveProgressive:
			t.Defensive += left
			t.Progressive += right
		case catalog.SectionConsistentFlexible:
			t.Consistent += left
			t.Flexible += right
		}
	}
	return t
}

// Get returns a total by quadrant name.
func (t Totals) Get(quadrant string) int {
	switch quadrant {
	case QuadrantDefensive:
		return t.Defensive
	case QuadrantProgressive:
		return t.Progressive
	case QuadrantConsistent:
		return t.Consistent
	case QuadrantFlexible:
		return t.Flexible
	}
	return 0
}

// QuadrantScore pairs the current and target value of one quadrant.
type QuadrantScore struct {
	Quadrant string `json:"quadrant"`
	AsIs     int    `json:"asis"`
	ToBe     int    `json:"tobe"`
}

// Comparison builds the quadrant-by-quadrant view of both modes.
func Comparison(cat *catalog.Catalog, asIs, toBe ResponseSet) []QuadrantScore {
	a := ComputeTotals(cat, asIs)
	b := ComputeTotals(cat, toBe)

	out := make([]QuadrantScore, len(Quadrants))
	for i, q := range Quadrants {
		out[i] = QuadrantScore{Quadrant: q, AsIs: a.Get(q), ToBe: b.Get(q)}
	}
	return out
}
