package pricing

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FreeShippingThreshold is the subtotal from which shipping is free
var FreeShippingThreshold = decimal.NewFromInt(100000)

// DefaultShippingRate applies to regions missing from the table
var DefaultShippingRate = decimal.NewFromInt(15000)

// HomeCity is the seller's city; local delivery uses HomeCityRate
const HomeCity = "Popayán"

// HomeCityRate is the flat local delivery cost
var HomeCityRate = decimal.NewFromInt(5000)

var regionRates = map[string]int64{
	"Cauca":                    8000,
	"Valle del Cauca":          10000,
	"Nariño":                   12000,
	"Huila":                    12000,
	"Putumayo":                 14000,
	"Tolima":                   12000,
	"Cundinamarca":             12000,
	"Bogotá D.C.":              12000,
	"Antioquia":                12000,
	"Caldas":                   11000,
	"Risaralda":                11000,
	"Quindío":                  11000,
	"Santander":                14000,
	"Norte de Santander":       15000,
	"Boyacá":                   13000,
	"Meta":                     14000,
	"Atlántico":                15000,
	"Bolívar":                  15000,
	"Magdalena":                15000,
	"Córdoba":                  15000,
	"Amazonas":                 25000,
	"San Andrés y Providencia": 25000,
}

// RateTable resolves shipping cost from a destination and the order subtotal
type RateTable struct {
	threshold   decimal.Decimal
	defaultRate decimal.Decimal
	regions     map[string]decimal.Decimal
	cities      map[string]decimal.Decimal
}

// NewRateTable builds a table; region and city keys are matched ignoring case and accents
func NewRateTable(threshold, defaultRate decimal.Decimal, regions, cities map[string]decimal.Decimal) *RateTable {
	t := &RateTable{
		threshold:   threshold,
		defaultRate: defaultRate,
		regions:     make(map[string]decimal.Decimal, len(regions)),
		cities:      make(map[string]decimal.Decimal, len(cities)),
	}
	for k, v := range regions {
		t.regions[normalizePlace(k)] = v
	}
	for k, v := range cities {
		t.cities[normalizePlace(k)] = v
	}
	return t
}

// DefaultRates returns the shop's shipping table
func DefaultRates() *RateTable {
	regions := make(map[string]decimal.Decimal, len(regionRates))
	for k, v := range regionRates {
		regions[k] = decimal.NewFromInt(v)
	}
	return NewRateTable(FreeShippingThreshold, DefaultShippingRate, regions,
		map[string]decimal.Decimal{HomeCity: HomeCityRate})
}

var defaultTable = DefaultRates()

// ComputeShipping uses the default table
func ComputeShipping(region, city string, subtotal decimal.Decimal) decimal.Decimal {
	return defaultTable.Compute(region, city, subtotal)
}

// Threshold returns the free shipping threshold of the table
func (t *RateTable) Threshold() decimal.Decimal {
	return t.threshold
}

// Compute returns the shipping cost. The threshold is checked against the
// pre-shipping subtotal before any city or region rate.
func (t *RateTable) Compute(region, city string, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(t.threshold) {
		return decimal.Zero
	}
	if rate, ok := t.cities[normalizePlace(city)]; ok {
		return rate
	}
	if rate, ok := t.regions[normalizePlace(region)]; ok {
		return rate
	}
	return t.defaultRate
}

func normalizePlace(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
