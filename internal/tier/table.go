package tier

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"ranked-ladder/internal/domain"

	"gopkg.in/yaml.v3"
)

// Definition is one rung of the ladder. LP runs linearly from 0 at LowerBound
// to 100 at UpperBound; the top tier keeps counting past 100.
type Definition struct {
	Name             string  `yaml:"name" json:"name"`
	Order            int     `yaml:"order" json:"order"`
	LowerBound       float64 `yaml:"ratingLowerBound" json:"ratingLowerBound"`
	UpperBound       float64 `yaml:"ratingUpperBound" json:"ratingUpperBound"`
	PointsMultiplier float64 `yaml:"pointsMultiplier,omitempty" json:"pointsMultiplier"`
}

func (d Definition) Width() float64 {
	return d.UpperBound - d.LowerBound
}

// Table is the validated, ordered tier ladder. It is immutable once built.
type Table struct {
	tiers []Definition
	index map[string]int
}

type tableFile struct {
	Tiers []Definition `yaml:"tiers"`
}

func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: "bronze", Order: 1, LowerBound: 0, UpperBound: 1200, PointsMultiplier: 1},
		{Name: "silver", Order: 2, LowerBound: 1200, UpperBound: 1500, PointsMultiplier: 1.2},
		{Name: "gold", Order: 3, LowerBound: 1500, UpperBound: 1800, PointsMultiplier: 1.5},
		{Name: "platinum", Order: 4, LowerBound: 1800, UpperBound: 2100, PointsMultiplier: 1.8},
		{Name: "diamond", Order: 5, LowerBound: 2100, UpperBound: 2400, PointsMultiplier: 2.2},
		{Name: "master", Order: 6, LowerBound: 2400, UpperBound: 2700, PointsMultiplier: 2.5},
		{Name: "grandmaster", Order: 7, LowerBound: 2700, UpperBound: 3000, PointsMultiplier: 3},
	}
}

func Default() *Table {
	t, err := NewTable(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable reads a YAML tier table from path, or returns the built-in table when path is empty.
func LoadTable(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier table %s: %w", path, err)
	}
	return ParseTable(raw)
}

func ParseTable(raw []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tier table: %v", domain.ErrConfig, err)
	}
	return NewTable(file.Tiers)
}

// NewTable sorts defs by order and validates them.
func NewTable(defs []Definition) (*Table, error) {
	tiers := append([]Definition(nil), defs...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Order < tiers[j].Order })
	for i := range tiers {
		tiers[i].Name = strings.TrimSpace(tiers[i].Name)
		if tiers[i].PointsMultiplier == 0 {
			tiers[i].PointsMultiplier = 1
		}
	}
	if err := Validate(tiers); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(tiers))
	for i, t := range tiers {
		index[t.Name] = i
	}
	return &Table{tiers: tiers, index: index}, nil
}

// Validate checks a table already sorted by order: unique names and orders,
// non-empty ranges, and no gaps or overlaps between neighbours.
func Validate(tiers []Definition) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: tier table is empty", domain.ErrConfig)
	}
	names := make(map[string]struct{}, len(tiers))
	for i, t := range tiers {
		if t.Name == "" {
			return fmt.Errorf("%w: tier at order %d has no name", domain.ErrConfig, t.Order)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("%w: duplicate tier name %q", domain.ErrConfig, t.Name)
		}
		names[t.Name] = struct{}{}

		if math.IsNaN(t.LowerBound) || math.IsInf(t.LowerBound, 0) || math.IsNaN(t.UpperBound) || math.IsInf(t.UpperBound, 0) {
			return fmt.Errorf("%w: tier %q has non-finite bounds", domain.ErrConfig, t.Name)
		}
		if t.UpperBound <= t.LowerBound {
			return fmt.Errorf("%w: tier %q has empty range [%g, %g)", domain.ErrConfig, t.Name, t.LowerBound, t.UpperBound)
		}
		if t.PointsMultiplier < 0 {
			return fmt.Errorf("%w: tier %q has negative points multiplier", domain.ErrConfig, t.Name)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if prev.Order == t.Order {
			return fmt.Errorf("%w: tiers %q and %q share order %d", domain.ErrConfig, prev.Name, t.Name, t.Order)
		}
		if prev.UpperBound < t.LowerBound {
			return fmt.Errorf("%w: gap between %q (upper %g) and %q (lower %g)", domain.ErrConfig, prev.Name, prev.UpperBound, t.Name, t.LowerBound)
		}
		if prev.UpperBound > t.LowerBound {
			return fmt.Errorf("%w: overlap between %q (upper %g) and %q (lower %g)", domain.ErrConfig, prev.Name, prev.UpperBound, t.Name, t.LowerBound)
		}
	}
	return nil
}

func (t *Table) Len() int { return len(t.tiers) }

func (t *Table) At(i int) Definition { return t.tiers[i] }

// Tiers returns a copy of the ladder in ascending order.
func (t *Table) Tiers() []Definition {
	return append([]Definition(nil), t.tiers...)
}

func (t *Table) Lowest() Definition { return t.tiers[0] }

func (t *Table) Highest() Definition { return t.tiers[len(t.tiers)-1] }

// Index returns the position of the named tier.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}
