package survey

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/resilience/internal/catalog"
)

// Session is one respondent's in-memory questionnaire state.
// It is discarded when the process exits.
type Session struct {
	ID        string
	CreatedAt time.Time
	Store     *Store

	mu   sync.RWMutex
	name string
}

// NewSession starts a session with both modes zeroed.
func NewSession(cat *catalog.Catalog, opts ...StoreOption) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Store:     NewStore(cat, opts...),
	}
}

// Name returns the respondent name; empty when unset.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName records the respondent name exactly as entered.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// ModeView is a read-only snapshot of one mode with its derived values.
type ModeView struct {
	Mode      string          `json:"mode"`
	Responses ResponseSet     `json:"responses"`
	Validity  map[string]bool `json:"validity"`
	Invalid   []string        `json:"invalid"`
	Totals    Totals          `json:"totals"`
}

// View recomputes validity and totals for a mode from the stored responses.
func (s *Session) View(mode Mode) ModeView {
	cat := s.Store.Catalog()
	rs := s.Store.Responses(mode)
	invalid := InvalidPairs(cat, rs)
	if invalid == nil {
		invalid = []string{}
	}
	return ModeView{
		Mode:      mode.Label(),
		Responses: rs,
		Validity:  Validity(cat, rs),
		Invalid:   invalid,
		Totals:    ComputeTotals(cat, rs),
	}
}
