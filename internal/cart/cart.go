package cart

import (
	"errors"
	"strings"
	"time"

	"ninamar-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Item is a priced, configured line waiting in the cart
type Item struct {
	ID             string                      `json:"id"`
	ProductID      uuid.UUID                   `json:"product_id"`
	ProductName    string                      `json:"product_name"`
	ProductSlug    string                      `json:"product_slug"`
	ProductImage   *string                     `json:"product_image,omitempty"`
	BasePrice      decimal.Decimal             `json:"base_price"`
	Customizations models.CustomizationDetails `json:"customization_details"`
	Engraving      *string                     `json:"engraving,omitempty"`
	Quantity       int                         `json:"quantity"`
	UnitPrice      decimal.Decimal             `json:"unit_price"`
}

// LineTotal is unit price times quantity
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) mergeKey() string {
	var b strings.Builder
	b.WriteString(i.ProductID.String())
	for _, d := range i.Customizations {
		b.WriteString("|")
		b.WriteString(d.OptionName)
		b.WriteString("=")
		b.WriteString(d.ValueName)
	}
	if i.Engraving != nil {
		b.WriteString("|#")
		b.WriteString(*i.Engraving)
	}
	return b.String()
}

// Cart is the server-side cart of one shopper session
type Cart struct {
	SessionID string    `json:"session_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty cart for the session
func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []Item{}}
}

// Add appends the line, or merges its quantity into an identical line
func (c *Cart) Add(item Item) (Item, error) {
	if item.Quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}

	key := item.mergeKey()
	for i := range c.Items {
		if c.Items[i].mergeKey() == key {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].UnitPrice = item.UnitPrice
			return c.Items[i], nil
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	c.Items = append(c.Items, item)
	return item, nil
}

// UpdateQuantity sets the quantity of a line
func (c *Cart) UpdateQuantity(id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove deletes a line
func (c *Cart) Remove(id string) error {
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []Item{}
}

// Subtotal sums all line totals
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, i := range c.Items {
		sum = sum.Add(i.LineTotal())
	}
	return sum
}

// Count is the number of units in the cart
func (c *Cart) Count() int {
	n := 0
	for _, i := range c.Items {
		n += i.Quantity
	}
	return n
}
