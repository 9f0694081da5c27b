package survey

// store.go holds the mutable response state for both modes.
//
// Writes that fail the input contract (unknown mode, pair or side, or a
// value outside [0,MaxPoints]) leave the store untouched and report nothing.
// Callers observe the outcome by reading the allocation back.

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/JonMunkholm/resilience/internal/catalog"
)

// Observer receives store events. Used for metrics.
type Observer interface {
	AllocationWritten(mode Mode, accepted bool)
	ModeReset(mode Mode)
}

type nopObserver struct{}

func (nopObserver) AllocationWritten(Mode, bool) {}
func (nopObserver) ModeReset(Mode)               {}

// Store holds one ResponseSet per mode.
type Store struct {
	cat      *catalog.Catalog
	observer Observer

	mu    sync.RWMutex
	modes map[Mode]ResponseSet
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObserver registers an observer for write and reset events.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewStore creates a store with an all-zero ResponseSet for each mode.
func NewStore(cat *catalog.Catalog, opts ...StoreOption) *Store {
	s := &Store{
		cat:      cat,
		observer: nopObserver{},
		modes:    make(map[Mode]ResponseSet, len(Modes)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, m := range Modes {
		s.modes[m] = NewResponseSet(cat)
	}
	return s
}

// NewResponseSet returns a zero allocation for every catalog pair.
func NewResponseSet(cat *catalog.Catalog) ResponseSet {
	rs := make(ResponseSet, cat.PairCount())
	for _, id := range cat.PairIDs() {
		rs[id] = Allocation{}
	}
	return rs
}

// Catalog returns the questionnaire the store is keyed by.
func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

// SetAllocation replaces one side of one pair under one mode.
// Invalid input is ignored.
func (s *Store) SetAllocation(mode Mode, pairID string, side Side, value int) {
	accepted := s.set(mode, pairID, side, value)
	s.observer.AllocationWritten(mode, accepted)
}

// SetAllocationInput is SetAllocation for untyped input such as a form field
// or a decoded JSON value. See ParseValue for what is accepted.
func (s *Store) SetAllocationInput(mode Mode, pairID string, side Side, raw any) {
	v, ok := ParseValue(raw)
	if !ok {
		s.observer.AllocationWritten(mode, false)
		return
	}
	s.SetAllocation(mode, pairID, side, v)
}

func (s *Store) set(mode Mode, pairID string, side Side, value int) bool {
	if !mode.valid() || !s.cat.Has(pairID) || value < 0 || value > MaxPoints {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.modes[mode][pairID]
	switch side {
	case SideLeft:
		a.Left = value
	case SideRight:
		a.Right = value
	default:
		return false
	}
	s.modes[mode][pairID] = a
	return true
}

// ResetMode replaces one mode's responses with zeros.
func (s *Store) ResetMode(mode Mode) {
	if !mode.valid() {
		return
	}

	s.mu.Lock()
	s.modes[mode] = NewResponseSet(s.cat)
	s.mu.Unlock()

	s.observer.ModeReset(mode)
}

// Responses returns a copy of a mode's ResponseSet.
// An unknown mode yields an all-zero set.
func (s *Store) Responses(mode Mode) ResponseSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.modes[mode]
	if !ok {
		return NewResponseSet(s.cat)
	}
	return rs.Clone()
}

// Allocation returns the stored allocation for one pair.
func (s *Store) Allocation(mode Mode, pairID string) Allocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes[mode].Get(pairID)
}

// ParseValue applies the numeric input contract to an untyped value.
//
// Integers in [0,MaxPoints] are accepted whether they arrive as Go ints,
// floats with no fractional part, json.Number or numeric strings. A blank
// string reads as 0, matching a cleared number field. Everything else is
// rejected.
func ParseValue(raw any) (int, bool) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		return ParseValue(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		// ParseFloat reads hex floats such as "0x5p0"; a number field never does.
		if strings.ContainsAny(s, "xX") {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 0 || f > MaxPoints {
		return 0, false
	}
	return int(f), true
}
