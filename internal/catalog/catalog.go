// Package catalog holds the fixed questionnaire definition: two bipolar
// dimensions, each backed by a section of twelve statement pairs.
//
// The definition ships as an embedded YAML document. Pair ids are used as
// response keys and the position of a pair inside its section names the
// exported columns, so both must stay stable across releases.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Section ids. The aggregator binds each to a pair of named totals.
const (
	SectionDefensiveProgressive = "DP"
	SectionConsistentFlexible   = "CF"
)

// Shape constraints enforced on every catalog.
const (
	PairsPerSection  = 12
	PairsPerGroup    = 3
	GroupsPerSection = PairsPerSection / PairsPerGroup
)

// ErrUnknownPair is returned when a pair id is not part of the catalog.
var ErrUnknownPair = errors.New("unknown statement pair")

// StatementPair is one left/right choice presented to the respondent.
type StatementPair struct {
	ID    string `yaml:"id" json:"id"`
	Group string `yaml:"group" json:"group"`
	Left  string `yaml:"left" json:"left"`
	Right string `yaml:"right" json:"right"`
}

// Section is one dimension of the questionnaire.
type Section struct {
	ID         string          `yaml:"id" json:"id"`
	Title      string          `yaml:"title" json:"title"`
	LeftLabel  string          `yaml:"leftLabel" json:"leftLabel"`
	RightLabel string          `yaml:"rightLabel" json:"rightLabel"`
	Pairs      []StatementPair `yaml:"pairs" json:"pairs"`
}

// Catalog is an immutable, validated questionnaire definition.
type Catalog struct {
	version  int
	sections []Section
	index    map[string]pairRef
	order    []string
}

// pairRef locates a pair: section index and 1-based ordinal within it.
type pairRef struct {
	section int
	ordinal int
}

type document struct {
	Version  int       `yaml:"version"`
	Sections []Section `yaml:"sections"`
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
})

// Default returns the embedded questionnaire.
// Panics if the embedded definition does not validate.
func Default() *Catalog {
	return defaultCatalog()
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("catalog validation: %w", err)
	}

	c := &Catalog{
		version:  doc.Version,
		sections: doc.Sections,
		index:    make(map[string]pairRef, len(doc.Sections)*PairsPerSection),
	}
	for si, sec := range doc.Sections {
		for pi, p := range sec.Pairs {
			c.index[p.ID] = pairRef{section: si, ordinal: pi + 1}
			c.order = append(c.order, p.ID)
		}
	}
	return c, nil
}

// validate reports every shape violation at once.
func validate(doc document) error {
	var errs []string

	if doc.Version <= 0 {
		errs = append(errs, "version must be positive")
	}

	wantSections := []string{SectionDefensiveProgressive, SectionConsistentFlexible}
	if len(doc.Sections) != len(wantSections) {
		errs = append(errs, fmt.Sprintf("expected %d sections, got %d", len(wantSections), len(doc.Sections)))
	}

	seen := make(map[string]bool)
	for i, sec := range doc.Sections {
		if i < len(wantSections) && sec.ID != wantSections[i] {
			errs = append(errs, fmt.Sprintf("section %d: id %q, want %q", i+1, sec.ID, wantSections[i]))
		}
		if sec.LeftLabel == "" || sec.RightLabel == "" {
			errs = append(errs, fmt.Sprintf("section %s: pole labels are required", sec.ID))
		}
		if len(sec.Pairs) != PairsPerSection {
			errs = append(errs, fmt.Sprintf("section %s: expected %d pairs, got %d", sec.ID, PairsPerSection, len(sec.Pairs)))
		}

		groupSize := make(map[string]int)
		for _, p := range sec.Pairs {
			switch {
			case p.ID == "":
				errs = append(errs, fmt.Sprintf("section %s: pair without id", sec.ID))
			case seen[p.ID]:
				errs = append(errs, fmt.Sprintf("duplicate pair id %q", p.ID))
			}
			seen[p.ID] = true

			if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
				errs = append(errs, fmt.Sprintf("pair %s: both statements are required", p.ID))
			}
			groupSize[p.Group]++
		}

		if len(groupSize) != GroupsPerSection {
			errs = append(errs, fmt.Sprintf("section %s: expected %d groups, got %d", sec.ID, GroupsPerSection, len(groupSize)))
		}
		for g, n := range groupSize {
			if n != PairsPerGroup {
				errs = append(errs, fmt.Sprintf("section %s: group %q has %d pairs, want %d", sec.ID, g, n, PairsPerGroup))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Version returns the catalog revision.
func (c *Catalog) Version() int {
	return c.version
}

// Sections returns the sections in presentation order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, sec := range c.sections {
		out[i] = sec
		out[i].Pairs = append([]StatementPair(nil), sec.Pairs...)
	}
	return out
}

// Section returns a copy of the section with the given id.
func (c *Catalog) Section(id string) (Section, bool) {
	for _, sec := range c.sections {
		if sec.ID == id {
			sec.Pairs = append([]StatementPair(nil), sec.Pairs...)
			return sec, true
		}
	}
	return Section{}, false
}

// Pair returns the statement pair with the given id.
func (c *Catalog) Pair(id string) (StatementPair, error) {
	ref, ok := c.index[id]
	if !ok {
		return StatementPair{}, fmt.Errorf("%w: %q", ErrUnknownPair, id)
	}
	return c.sections[ref.section].Pairs[ref.ordinal-1], nil
}

// Has reports whether id names a catalog pair.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Locate returns the section id and 1-based in-section ordinal of a pair.
func (c *Catalog) Locate(id string) (sectionID string, ordinal int, ok bool) {
	ref, ok := c.index[id]
	if !ok {
		return "", 0, false
	}
	return c.sections[ref.section].ID, ref.ordinal, true
}

// PairIDs returns every pair id in catalog order.
func (c *Catalog) PairIDs() []string {
	return append([]string(nil), c.order...)
}

// PairCount returns the number of pairs across all sections.
func (c *Catalog) PairCount() int {
	return len(c.order)
}
