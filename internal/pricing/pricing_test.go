package pricing

import (
	"testing"

	"ninamar-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestComputeShipping(t *testing.T) {
	tests := []struct {
		name     string
		region   string
		city     string
		subtotal decimal.Decimal
		expected decimal.Decimal
	}{
		{name: "home city override", region: "Cauca", city: "Popayán", subtotal: d(85000), expected: d(5000)},
		{name: "override ignores region rate", region: "Antioquia", city: "Popayán", subtotal: d(20000), expected: d(5000)},
		{name: "override without accent", region: "cauca", city: "  popayan ", subtotal: d(20000), expected: d(5000)},
		{name: "region rate", region: "Valle del Cauca", city: "Cali", subtotal: d(50000), expected: d(10000)},
		{name: "region without accent", region: "narino", city: "Pasto", subtotal: d(50000), expected: d(12000)},
		{name: "unknown region", region: "Atlantis", city: "Nowhere", subtotal: d(50000), expected: DefaultShippingRate},
		{name: "empty destination", region: "", city: "", subtotal: d(1000), expected: DefaultShippingRate},
		{name: "threshold reached", region: "Amazonas", city: "Leticia", subtotal: d(100000), expected: decimal.Zero},
		{name: "above threshold beats override", region: "Cauca", city: "Popayán", subtotal: d(120000), expected: decimal.Zero},
		{name: "just below threshold", region: "Cauca", city: "Timbío", subtotal: decimal.RequireFromString("99999.99"), expected: d(8000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeShipping(tt.region, tt.city, tt.subtotal)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestComputeShipping_FreeAboveThreshold(t *testing.T) {
	for _, subtotal := range []int64{100000, 100001, 250000, 10000000} {
		for _, region := range []string{"Cauca", "Amazonas", "unknown"} {
			assert.True(t, ComputeShipping(region, "Popayán", d(subtotal)).IsZero())
			assert.True(t, ComputeShipping(region, "Bogotá", d(subtotal)).IsZero())
		}
	}
}

func TestRateTable_Custom(t *testing.T) {
	table := NewRateTable(d(50000), d(9000),
		map[string]decimal.Decimal{"Región Uno": d(3000)},
		map[string]decimal.Decimal{"Ciudad": d(1000)})

	assert.True(t, d(3000).Equal(table.Compute("region uno", "otra", d(100))))
	assert.True(t, d(1000).Equal(table.Compute("Región Uno", "CIUDAD", d(100))))
	assert.True(t, d(9000).Equal(table.Compute("x", "y", d(100))))
	assert.True(t, table.Compute("x", "y", d(50000)).IsZero())
	assert.True(t, d(50000).Equal(table.Threshold()))
}

func sampleOptions() []Option {
	return []Option{
		{
			Name: "color", DisplayName: "Color", Type: models.OptionTypeColor, Required: true, DisplayOrder: 1,
			Values: []Value{
				{Name: "plata", DisplayName: "Plata", AdditionalPrice: d(0), Available: true},
				{Name: "oro", DisplayName: "Oro", AdditionalPrice: d(5000), Available: true},
				{Name: "rosa", DisplayName: "Oro rosa", AdditionalPrice: d(7000), Available: false},
			},
		},
		{
			Name: "size", DisplayName: "Talla", Type: models.OptionTypeSize, DisplayOrder: 2,
			Values: []Value{
				{Name: "s", DisplayName: "S", AdditionalPrice: d(0), Available: true},
				{Name: "l", DisplayName: "L", AdditionalPrice: d(3000), Available: true},
			},
		},
		{
			Name: "engraving", DisplayName: "Grabado", Type: models.OptionTypeText, DisplayOrder: 3,
			Values: []Value{{Name: "engraving", AdditionalPrice: d(4000), Available: true}},
		},
	}
}

func TestAccumulate_ColorAndQuantity(t *testing.T) {
	q, err := Accumulate(d(40000), sampleOptions(), Selections{"color": "oro"}, 2)
	require.NoError(t, err)

	assert.True(t, d(45000).Equal(q.UnitPrice))
	assert.True(t, d(90000).Equal(q.LineTotal))
	require.Len(t, q.Details, 1)
	assert.Equal(t, "Color", q.Details[0].OptionName)
	assert.Equal(t, "Oro", q.Details[0].ValueName)
	assert.True(t, d(5000).Equal(q.Details[0].AdditionalPrice))
}

func TestAccumulate_SumsAllSelections(t *testing.T) {
	sel := Selections{"engraving": "Ana", "size": "l", "color": "oro"}
	q, err := Accumulate(d(10000), sampleOptions(), sel, 3)
	require.NoError(t, err)

	// 10000 + 5000 + 3000 + 4000
	assert.True(t, d(22000).Equal(q.UnitPrice))
	assert.True(t, d(66000).Equal(q.LineTotal))
	require.Len(t, q.Details, 3)
	assert.Equal(t, "Color", q.Details[0].OptionName)
	assert.Equal(t, "Talla", q.Details[1].OptionName)
	assert.Equal(t, "Ana", q.Details[2].ValueName)
}

func TestAccumulate_OrderIndependent(t *testing.T) {
	opts := sampleOptions()
	reversed := []Option{opts[2], opts[1], opts[0]}
	sel := Selections{"color": "oro", "size": "l"}

	a, err := Accumulate(d(40000), opts, sel, 1)
	require.NoError(t, err)
	b, err := Accumulate(d(40000), reversed, sel, 1)
	require.NoError(t, err)

	assert.True(t, a.UnitPrice.Equal(b.UnitPrice))
	assert.Equal(t, a.Details, b.Details)
}

func TestAccumulate_LineTotalProperty(t *testing.T) {
	bases := []int64{0, 1, 12500, 40000}
	for _, base := range bases {
		for q := 1; q <= 5; q++ {
			quote, err := Accumulate(d(base), sampleOptions(), Selections{"color": "oro", "size": "l"}, q)
			require.NoError(t, err)
			expected := d(base + 5000 + 3000).Mul(d(int64(q)))
			assert.True(t, expected.Equal(quote.LineTotal))
		}
	}
}

func TestAccumulate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selections
		quantity int
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing required",
			sel:      Selections{"size": "s"},
			quantity: 1,
			check: func(t *testing.T, err error) {
				var missing *MissingSelectionError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, "Color", missing.Option)
			},
		},
		{
			name:     "blank required",
			sel:      Selections{"color": "  "},
			quantity: 1,
			check: func(t *testing.T, err error) {
				var missing *MissingSelectionError
				assert.ErrorAs(t, err, &missing)
			},
		},
		{
			name:     "unavailable value",
			sel:      Selections{"color": "rosa"},
			quantity: 1,
			check: func(t *testing.T, err error) {
				var invalid *InvalidSelectionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "not available", invalid.Reason)
			},
		},
		{
			name:     "unknown value",
			sel:      Selections{"color": "bronce"},
			quantity: 1,
			check: func(t *testing.T, err error) {
				var invalid *InvalidSelectionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "unknown value", invalid.Reason)
			},
		},
		{
			name:     "unknown option",
			sel:      Selections{"color": "oro", "stone": "ruby"},
			quantity: 1,
			check: func(t *testing.T, err error) {
				var invalid *InvalidSelectionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "unknown option", invalid.Reason)
			},
		},
		{
			name:     "zero quantity",
			sel:      Selections{"color": "oro"},
			quantity: 0,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidQuantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Accumulate(d(40000), sampleOptions(), tt.sel, tt.quantity)
			assert.Nil(t, q)
			tt.check(t, err)
		})
	}
}

func TestSteps(t *testing.T) {
	opts := sampleOptions()
	steps := Steps([]Option{opts[2], opts[0], opts[1]})

	require.Len(t, steps, 4)
	assert.Equal(t, "color", steps[0].Option.Name)
	assert.Equal(t, "size", steps[1].Option.Name)
	assert.Equal(t, "engraving", steps[2].Option.Name)
	assert.True(t, steps[3].Final)
	assert.Nil(t, steps[3].Option)
}

func TestOptionsFromCatalog(t *testing.T) {
	opts := OptionsFromCatalog([]models.CustomizationOption{{
		Name: "color", DisplayName: "Color", Type: models.OptionTypeColor, Required: true,
		Values: []models.CustomizationValue{{Value: "oro", DisplayName: "Oro", AdditionalPrice: d(5000), Available: true}},
	}})

	require.Len(t, opts, 1)
	assert.True(t, opts[0].Required)
	require.Len(t, opts[0].Values, 1)
	assert.Equal(t, "oro", opts[0].Values[0].Name)
}
