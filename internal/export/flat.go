package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/survey"
)

// Fixed leading columns of the flat exports.
const (
	ColumnName = "Name"
	ColumnMode = "Mode"
)

// quadrantAbbrev names the per-quadrant total columns of the dual-mode export.
var quadrantAbbrev = map[string]string{
	survey.QuadrantDefensive:   "DEF",
	survey.QuadrantProgressive: "PROG",
	survey.QuadrantConsistent:  "CONS",
	survey.QuadrantFlexible:    "FLEX",
}

// PairColumn names a single-mode pair column, e.g. "DP_3_Left".
// The ordinal is the pair's 1-based position inside its section.
func PairColumn(sectionID string, ordinal int, side survey.Side) string {
	return fmt.Sprintf("%s_%d_%s", sectionID, ordinal, sideSuffix(side))
}

// DualPairColumn names a dual-mode pair column, e.g. "CF_12_TOBE_Right".
func DualPairColumn(sectionID string, ordinal int, mode survey.Mode, side survey.Side) string {
	return fmt.Sprintf("%s_%d_%s_%s", sectionID, ordinal, mode.Tag(), sideSuffix(side))
}

// TotalColumn names a dual-mode total column, e.g. "DEF_ASIS_total".
func TotalColumn(quadrant string, mode survey.Mode) string {
	return fmt.Sprintf("%s_%s_total", quadrantAbbrev[quadrant], mode.Tag())
}

func sideSuffix(side survey.Side) string {
	if side == survey.SideRight {
		return "Right"
	}
	return "Left"
}

// CurrentRow builds the single-mode flat record: name, mode label, the four
// totals, then a Left/Right column pair per statement pair.
func CurrentRow(cat *catalog.Catalog, name string, mode survey.Mode, rs survey.ResponseSet, totals survey.Totals) *Record {
	row := NewRecord().
		Set(ColumnName, name).
		Set(ColumnMode, mode.Label())

	for _, q := range survey.Quadrants {
		row.Set(q, totals.Get(q))
	}

	for _, sec := range cat.Sections() {
		for i, p := range sec.Pairs {
			a := rs.Get(p.ID)
			row.Set(PairColumn(sec.ID, i+1, survey.SideLeft), a.Left)
			row.Set(PairColumn(sec.ID, i+1, survey.SideRight), a.Right)
		}
	}
	return row
}

// BothRow builds the dual-mode flat record: name, AS IS/TO BE totals per
// quadrant, then four columns per statement pair.
func BothRow(cat *catalog.Catalog, name string, asIs, toBe survey.ResponseSet) *Record {
	a := survey.ComputeTotals(cat, asIs)
	b := survey.ComputeTotals(cat, toBe)

	row := NewRecord().Set(ColumnName, name)
	for _, q := range survey.Quadrants {
		row.Set(TotalColumn(q, survey.ModeAsIs), a.Get(q))
		row.Set(TotalColumn(q, survey.ModeToBe), b.Get(q))
	}

	for _, sec := range cat.Sections() {
		for i, p := range sec.Pairs {
			n := i + 1
			x, y := asIs.Get(p.ID), toBe.Get(p.ID)
			row.Set(DualPairColumn(sec.ID, n, survey.ModeAsIs, survey.SideLeft), x.Left)
			row.Set(DualPairColumn(sec.ID, n, survey.ModeAsIs, survey.SideRight), x.Right)
			row.Set(DualPairColumn(sec.ID, n, survey.ModeToBe, survey.SideLeft), y.Left)
			row.Set(DualPairColumn(sec.ID, n, survey.ModeToBe, survey.SideRight), y.Right)
		}
	}
	return row
}

// Columns returns the flat export header for the single-mode or dual-mode
// layout.
func Columns(cat *catalog.Catalog, dual bool) []string {
	empty := survey.ResponseSet{}
	if dual {
		return BothRow(cat, "", empty, empty).Keys()
	}
	return CurrentRow(cat, "", survey.ModeAsIs, empty, survey.Totals{}).Keys()
}

// ResponsesFromRow recovers name, mode and responses from a single-mode flat
// record. Pair columns that are absent or blank read as zero; the stored
// totals are ignored since they are derived.
func ResponsesFromRow(cat *catalog.Catalog, row *Record) (string, survey.Mode, survey.ResponseSet, error) {
	name := stringValue(row, ColumnName)

	mode, err := survey.ParseMode(stringValue(row, ColumnMode))
	if err != nil {
		return "", 0, nil, err
	}

	rs := survey.NewResponseSet(cat)
	for _, sec := range cat.Sections() {
		for i, p := range sec.Pairs {
			left, err := intValue(row, PairColumn(sec.ID, i+1, survey.SideLeft))
			if err != nil {
				return "", 0, nil, err
			}
			right, err := intValue(row, PairColumn(sec.ID, i+1, survey.SideRight))
			if err != nil {
				return "", 0, nil, err
			}
			rs[p.ID] = survey.Allocation{Left: left, Right: right}
		}
	}
	return name, mode, rs, nil
}

func stringValue(row *Record, key string) string {
	v, _ := row.Get(key)
	return formatValue(v)
}

func intValue(row *Record, key string) (int, error) {
	s := strings.TrimSpace(stringValue(row, key))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid field %s=%q: %w", key, s, err)
	}
	return n, nil
}

// Filename derives the download name of a single-mode export.
func Filename(name string, mode survey.Mode, ext string) string {
	return fmt.Sprintf("resilience_%s_%s.%s", filenamePart(name), mode.Slug(), ext)
}

// BothFilename derives the download name of the dual-mode export.
func BothFilename(name string) string {
	return fmt.Sprintf("resilience_%s_bothmodes.csv", filenamePart(name))
}

// filenamePart falls back to "anon" and drops characters that would break a
// path or a Content-Disposition header.
func filenamePart(name string) string {
	if name == "" {
		return "anon"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\"`, r):
			return '_'
		}
		return r
	}, name)
}
