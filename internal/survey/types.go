package survey

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPoints is the per-pair budget shared by the two sides of an allocation.
const MaxPoints = 10

// Mode is one of the two parallel respondent states.
type Mode int

const (
	ModeAsIs Mode = iota // current state
	ModeToBe             // target state
)

// Modes lists both modes in export order.
var Modes = []Mode{ModeAsIs, ModeToBe}

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrUnknownSide = errors.New("unknown side")
)

// Label is the human-readable mode name written into exports.
func (m Mode) Label() string {
	switch m {
	case ModeAsIs:
		return "AS IS"
	case ModeToBe:
		return "TO BE"
	default:
		return ""
	}
}

// Slug is the lowercase, space-free form used in URLs and file names.
func (m Mode) Slug() string {
	return strings.ToLower(m.Tag())
}

// Tag is the column infix used by the dual-mode export.
func (m Mode) Tag() string {
	return strings.ReplaceAll(m.Label(), " ", "")
}

func (m Mode) String() string {
	return m.Label()
}

// valid reports whether m is one of the declared modes.
func (m Mode) valid() bool {
	return m == ModeAsIs || m == ModeToBe
}

// ParseMode accepts a label ("AS IS"), slug ("asis") or tag ("ASIS").
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, m := range Modes {
		if key == m.Slug() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Side selects one pole of a statement pair.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts "left" or "right" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideLeft:
		return SideLeft, nil
	case SideRight:
		return SideRight, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

// Allocation is one respondent's split for one pair under one mode.
type Allocation struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Sum returns the combined points of both sides.
func (a Allocation) Sum() int {
	return a.Left + a.Right
}

// ResponseSet maps pair id to allocation. A missing entry reads as zero.
type ResponseSet map[string]Allocation

// Get returns the allocation for id, or the zero allocation if absent.
func (rs ResponseSet) Get(id string) Allocation {
	return rs[id]
}

// Clone returns an independent copy.
func (rs ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// Totals are the four pole scores. Always derived from a ResponseSet.
type Totals struct {
	Defensive   int `json:"defensive"`
	Progressive int `json:"progressive"`
	Consistent  int `json:"consistent"`
	Flexible    int `json:"flexible"`
}
