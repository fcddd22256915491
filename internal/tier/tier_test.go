package tier

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ranked-ladder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_AdjacentBoundsMeet(t *testing.T) {
	table := Default()
	require.Equal(t, 7, table.Len())
	for i := 1; i < table.Len(); i++ {
		lower, higher := table.At(i-1), table.At(i)
		assert.Less(t, lower.Order, higher.Order)
		assert.Equal(t, lower.UpperBound, higher.LowerBound, "%s -> %s", lower.Name, higher.Name)
	}
	assert.Equal(t, "bronze", table.Lowest().Name)
	assert.Equal(t, "grandmaster", table.Highest().Name)
}

func TestNewTable_SortsByOrder(t *testing.T) {
	table, err := NewTable([]Definition{
		{Name: "b", Order: 2, LowerBound: 100, UpperBound: 200},
		{Name: "a", Order: 1, LowerBound: 0, UpperBound: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", table.At(0).Name)
	assert.Equal(t, 1.0, table.At(0).PointsMultiplier)
	i, ok := table.Index("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestValidate_RejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"empty", nil},
		{"gap", []Definition{
			{Name: "a", Order: 1, LowerBound: 0, UpperBound: 100},
			{Name: "b", Order: 2, LowerBound: 110, UpperBound: 200},
		}},
		{"overlap", []Definition{
			{Name: "a", Order: 1, LowerBound: 0, UpperBound: 120},
			{Name: "b", Order: 2, LowerBound: 100, UpperBound: 200},
		}},
		{"empty range", []Definition{
			{Name: "a", Order: 1, LowerBound: 100, UpperBound: 100},
		}},
		{"duplicate name", []Definition{
			{Name: "a", Order: 1, LowerBound: 0, UpperBound: 100},
			{Name: "a", Order: 2, LowerBound: 100, UpperBound: 200},
		}},
		{"duplicate order", []Definition{
			{Name: "a", Order: 1, LowerBound: 0, UpperBound: 100},
			{Name: "b", Order: 1, LowerBound: 100, UpperBound: 200},
		}},
		{"missing name", []Definition{
			{Name: " ", Order: 1, LowerBound: 0, UpperBound: 100},
		}},
		{"infinite bound", []Definition{
			{Name: "a", Order: 1, LowerBound: 0, UpperBound: math.Inf(1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.defs)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}

func TestParseTable_YAML(t *testing.T) {
	raw := []byte(`
tiers:
  - name: rookie
    order: 1
    ratingLowerBound: 0
    ratingUpperBound: 1000
  - name: veteran
    order: 2
    ratingLowerBound: 1000
    ratingUpperBound: 2000
    pointsMultiplier: 2
`)
	table, err := ParseTable(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 2.0, table.Highest().PointsMultiplier)

	_, err = ParseTable([]byte("tiers: [oops"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, Default().Tiers(), table.Tiers())

	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tiers:
  - {name: low, order: 1, ratingLowerBound: 0, ratingUpperBound: 50}
  - {name: high, order: 2, ratingLowerBound: 60, ratingUpperBound: 100}
`), 0o644))
	_, err = LoadTable(path)
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		sigma float64
		want  domain.ConfidenceBand
	}{
		{350, domain.BandUncertain},
		{200, domain.BandUncertain},
		{199.9, domain.BandDeveloping},
		{100, domain.BandDeveloping},
		{99, domain.BandEstablished},
		{50, domain.BandEstablished},
		{49.99, domain.BandProven},
		{25, domain.BandProven},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.sigma), "sigma %v", tt.sigma)
	}
}

func TestMap(t *testing.T) {
	m := NewMapper(Default())
	tests := []struct {
		name     string
		rating   float64
		tier     string
		lp       float64
		division int
	}{
		{"negative rating", -400, "bronze", 0, 4},
		{"bottom edge", 0, "bronze", 0, 4},
		{"mid bronze", 600, "bronze", 50, 2},
		{"exact boundary", 1200, "silver", 0, 4},
		{"silver second quarter", 1275, "silver", 25, 3},
		{"mid gold", 1650, "gold", 50, 2},
		{"top of platinum", 2099, "platinum", 99.6666666667, 1},
		{"top tier start", 2700, "grandmaster", 0, 4},
		{"top tier prestige", 3150, "grandmaster", 150, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Map(tt.rating, 120)
			require.NoError(t, err)
			assert.Equal(t, tt.tier, p.Tier.Name)
			assert.InDelta(t, tt.lp, p.LP, 1e-9)
			assert.Equal(t, tt.division, p.Division)
			assert.Equal(t, domain.BandDeveloping, p.Band)
		})
	}
}

func TestDivisionFor(t *testing.T) {
	tests := []struct {
		lp   float64
		want int
	}{
		{0, 4},
		{24.99, 4},
		{25, 3},
		{50, 2},
		{74.9, 2},
		{75, 1},
		{99.99, 1},
		{480, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DivisionFor(tt.lp), "lp %v", tt.lp)
	}
}

func TestMap_LPBelowHundredOutsideTopTier(t *testing.T) {
	m := NewMapper(Default())
	p, err := m.Map(1499.9999999, 40)
	require.NoError(t, err)
	assert.Equal(t, "silver", p.Tier.Name)
	assert.Less(t, p.LP, 100.0)
	assert.Less(t, m.LPIn(1, 5000), 100.0)
}

func TestMap_Idempotent(t *testing.T) {
	m := NewMapper(Default())
	for _, r := range []float64{-10, 0, 450, 1199.5, 1800, 2999, 12000} {
		a, err := m.Map(r, 77)
		require.NoError(t, err)
		b, err := m.Map(r, 77)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestMap_RejectsMalformedInput(t *testing.T) {
	m := NewMapper(Default())
	_, err := m.Map(math.NaN(), 100)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = m.Map(1000, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = m.Map(1000, math.Inf(1))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoadTable_ShippedConfigMatchesDefault(t *testing.T) {
	table, err := LoadTable(filepath.Join("..", "..", "configs", "tiers.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Tiers(), table.Tiers())
}
