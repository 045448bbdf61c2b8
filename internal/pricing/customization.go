package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ninamar-service/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a line quantity is below one
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrNegativePrice is returned for a negative base or additional price
	ErrNegativePrice = errors.New("price cannot be negative")
)

// MissingSelectionError reports a required option left without a value
type MissingSelectionError struct {
	Option string
}

func (e *MissingSelectionError) Error() string {
	return fmt.Sprintf("a selection is required for %s", e.Option)
}

// InvalidSelectionError reports a selection that does not resolve to an available value
type InvalidSelectionError struct {
	Option string
	Value  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %q for %s: %s", e.Value, e.Option, e.Reason)
}

// Value is a selectable value of an option
type Value struct {
	Name            string          `json:"value"`
	DisplayName     string          `json:"display_name"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
	Available       bool            `json:"available"`
	DisplayOrder    int             `json:"display_order"`
}

// Option is one independent customization dimension
type Option struct {
	Name         string            `json:"name"`
	DisplayName  string            `json:"display_name"`
	Type         models.OptionType `json:"option_type"`
	Required     bool              `json:"is_required"`
	DisplayOrder int               `json:"display_order"`
	Values       []Value           `json:"values"`
}

// Selections maps option name to the selected value name.
// Text options map to the customer's free text.
type Selections map[string]string

// Quote is the priced result of a configured line
type Quote struct {
	UnitPrice decimal.Decimal             `json:"unit_price"`
	LineTotal decimal.Decimal             `json:"line_total"`
	Quantity  int                         `json:"quantity"`
	Details   models.CustomizationDetails `json:"customization_details"`
}

// OptionsFromCatalog converts catalog options into accumulator options
func OptionsFromCatalog(opts []models.CustomizationOption) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		opt := Option{
			Name:         o.Name,
			DisplayName:  o.DisplayName,
			Type:         o.Type,
			Required:     o.Required,
			DisplayOrder: o.DisplayOrder,
			Values:       make([]Value, 0, len(o.Values)),
		}
		for _, v := range o.Values {
			opt.Values = append(opt.Values, Value{
				Name:            v.Value,
				DisplayName:     v.DisplayName,
				AdditionalPrice: v.AdditionalPrice,
				Available:       v.Available,
				DisplayOrder:    v.DisplayOrder,
			})
		}
		out = append(out, opt)
	}
	return out
}

// Accumulate prices a line. The result does not depend on the order in which
// options were chosen.
func Accumulate(basePrice decimal.Decimal, options []Option, selections Selections, quantity int) (*Quote, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if basePrice.IsNegative() {
		return nil, ErrNegativePrice
	}

	known := make(map[string]bool, len(options))
	for _, o := range options {
		known[o.Name] = true
	}
	for name := range selections {
		if !known[name] {
			return nil, &InvalidSelectionError{Option: name, Value: selections[name], Reason: "unknown option"}
		}
	}

	unit := basePrice
	details := make(models.CustomizationDetails, 0, len(options))

	for _, opt := range ordered(options) {
		raw := strings.TrimSpace(selections[opt.Name])
		if raw == "" {
			if opt.Required {
				return nil, &MissingSelectionError{Option: label(opt.DisplayName, opt.Name)}
			}
			continue
		}

		detail, err := resolve(opt, raw)
		if err != nil {
			return nil, err
		}
		unit = unit.Add(detail.AdditionalPrice)
		details = append(details, detail)
	}

	return &Quote{
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(quantity))),
		Quantity:  quantity,
		Details:   details,
	}, nil
}

func resolve(opt Option, raw string) (models.CustomizationDetail, error) {
	optLabel := label(opt.DisplayName, opt.Name)

	if opt.Type == models.OptionTypeText {
		price := decimal.Zero
		if len(opt.Values) > 0 {
			price = opt.Values[0].AdditionalPrice
		}
		if price.IsNegative() {
			return models.CustomizationDetail{}, ErrNegativePrice
		}
		return models.CustomizationDetail{OptionName: optLabel, ValueName: raw, AdditionalPrice: price}, nil
	}

	for _, v := range opt.Values {
		if v.Name != raw {
			continue
		}
		if !v.Available {
			return models.CustomizationDetail{}, &InvalidSelectionError{Option: optLabel, Value: raw, Reason: "not available"}
		}
		if v.AdditionalPrice.IsNegative() {
			return models.CustomizationDetail{}, ErrNegativePrice
		}
		return models.CustomizationDetail{
			OptionName:      optLabel,
			ValueName:       label(v.DisplayName, v.Name),
			AdditionalPrice: v.AdditionalPrice,
		}, nil
	}
	return models.CustomizationDetail{}, &InvalidSelectionError{Option: optLabel, Value: raw, Reason: "unknown value"}
}

// Step is one screen of the guided configurator
type Step struct {
	Index  int     `json:"index"`
	Option *Option `json:"option,omitempty"`
	Final  bool    `json:"final"`
}

// Steps lists options by display order followed by the quantity step
func Steps(options []Option) []Step {
	sorted := ordered(options)
	steps := make([]Step, 0, len(sorted)+1)
	for i := range sorted {
		steps = append(steps, Step{Index: i, Option: &sorted[i]})
	}
	return append(steps, Step{Index: len(sorted), Final: true})
}

func ordered(options []Option) []Option {
	sorted := make([]Option, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}

func label(display, name string) string {
	if display != "" {
		return display
	}
	return name
}
