package survey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/resilience/internal/catalog"
)

type countingObserver struct {
	accepted, rejected int
	resets             []Mode
}

func (o *countingObserver) AllocationWritten(_ Mode, ok bool) {
	if ok {
		o.accepted++
	} else {
		o.rejected++
	}
}

func (o *countingObserver) ModeReset(m Mode) { o.resets = append(o.resets, m) }

func TestNewStore_AllZero(t *testing.T) {
	s := NewStore(catalog.Default())

	for _, m := range Modes {
		rs := s.Responses(m)
		require.Len(t, rs, 24)
		for id, a := range rs {
			assert.Equal(t, Allocation{}, a, "%s %s", m, id)
		}
	}
}

func TestSetAllocation_ReplacesOnlyNamedSide(t *testing.T) {
	s := NewStore(catalog.Default())

	s.SetAllocation(ModeAsIs, "DP1", SideLeft, 6)
	s.SetAllocation(ModeAsIs, "DP1", SideRight, 4)
	s.SetAllocation(ModeAsIs, "DP1", SideLeft, 3)

	assert.Equal(t, Allocation{Left: 3, Right: 4}, s.Allocation(ModeAsIs, "DP1"))
	assert.Equal(t, Allocation{}, s.Allocation(ModeToBe, "DP1"))
}

func TestSetAllocation_RejectedWritesAreNoOps(t *testing.T) {
	obs := &countingObserver{}
	s := NewStore(catalog.Default(), WithObserver(obs))
	s.SetAllocation(ModeAsIs, "CF2", SideRight, 7)
	before := s.Responses(ModeAsIs)

	tests := []struct {
		name   string
		mode   Mode
		pairID string
		side   Side
		value  int
	}{
		{"negative", ModeAsIs, "CF2", SideRight, -1},
		{"above budget", ModeAsIs, "CF2", SideRight, 11},
		{"unknown pair", ModeAsIs, "ZZ9", SideRight, 5},
		{"unknown side", ModeAsIs, "CF2", Side("middle"), 5},
		{"unknown mode", Mode(7), "CF2", SideRight, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetAllocation(tt.mode, tt.pairID, tt.side, tt.value)
			assert.Equal(t, before, s.Responses(ModeAsIs))
		})
	}

	assert.Equal(t, 1, obs.accepted)
	assert.Equal(t, len(tests), obs.rejected)
}

func TestSetAllocationInput(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"int", 7, 7},
		{"float integral", 7.0, 7},
		{"numeric string", " 8 ", 8},
		{"json number", json.Number("9"), 9},
		{"exponent string", "1e1", 10},
		{"blank string reads as zero", "", 0},
		{"fraction rejected", 2.5, 5},
		{"fraction string rejected", "2.5", 5},
		{"text rejected", "abc", 5},
		{"bool rejected", true, 5},
		{"nil rejected", nil, 5},
		{"out of range rejected", 12, 5},
		{"negative string rejected", "-1", 5},
		{"hex string rejected", "0x5", 5},
		{"hex float string rejected", "0x5p0", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(catalog.Default())
			s.SetAllocation(ModeToBe, "DP3", SideLeft, 5)

			s.SetAllocationInput(ModeToBe, "DP3", SideLeft, tt.raw)

			got := s.Allocation(ModeToBe, "DP3")
			assert.Equal(t, tt.want, got.Left)
			assert.Equal(t, 0, got.Right)
		})
	}
}

func TestResetMode_LeavesOtherModeUnchanged(t *testing.T) {
	obs := &countingObserver{}
	cat := catalog.Default()
	s := NewStore(cat, WithObserver(obs))

	for i, id := range cat.PairIDs() {
		s.SetAllocation(ModeAsIs, id, SideLeft, i%11)
		s.SetAllocation(ModeToBe, id, SideRight, (i+3)%11)
	}
	toBe := s.Responses(ModeToBe)
	toBeJSON, err := json.Marshal(toBe)
	require.NoError(t, err)

	s.ResetMode(ModeAsIs)

	for id, a := range s.Responses(ModeAsIs) {
		assert.Equal(t, Allocation{}, a, id)
	}
	afterJSON, err := json.Marshal(s.Responses(ModeToBe))
	require.NoError(t, err)
	assert.Equal(t, string(toBeJSON), string(afterJSON))
	assert.Equal(t, []Mode{ModeAsIs}, obs.resets)
}

func TestResponses_ReturnsCopy(t *testing.T) {
	s := NewStore(catalog.Default())
	rs := s.Responses(ModeAsIs)
	rs["DP1"] = Allocation{Left: 9}

	assert.Equal(t, Allocation{}, s.Allocation(ModeAsIs, "DP1"))
}

func TestParseModeAndSide(t *testing.T) {
	for _, in := range []string{"AS IS", "asis", "ASIS", " As Is "} {
		m, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, ModeAsIs, m)
	}
	m, err := ParseMode("tobe")
	require.NoError(t, err)
	assert.Equal(t, ModeToBe, m)
	assert.Equal(t, "TO BE", m.Label())
	assert.Equal(t, "TOBE", m.Tag())
	assert.Equal(t, "tobe", m.Slug())

	_, err = ParseMode("later")
	assert.ErrorIs(t, err, ErrUnknownMode)

	side, err := ParseSide("RIGHT")
	require.NoError(t, err)
	assert.Equal(t, SideRight, side)
	_, err = ParseSide("up")
	assert.ErrorIs(t, err, ErrUnknownSide)
}

func TestSession_Name(t *testing.T) {
	sess := NewSession(catalog.Default())
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "", sess.Name())

	sess.SetName("  Ada  ")
	assert.Equal(t, "  Ada  ", sess.Name())
}
