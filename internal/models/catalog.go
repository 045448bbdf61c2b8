package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products in the shop
type Category struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CategoryID  *uuid.UUID      `db:"category_id" json:"category_id,omitempty"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    *string         `db:"image_url" json:"image_url,omitempty"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// OptionType tags how a customization option is presented
type OptionType string

// Option types
const (
	OptionTypeColor    OptionType = "color"
	OptionTypeSize     OptionType = "size"
	OptionTypeMaterial OptionType = "material"
	OptionTypeText     OptionType = "text"
	OptionTypeSelect   OptionType = "select"
)

// CustomizationOption is a configurable dimension of a product
type CustomizationOption struct {
	ID           uuid.UUID            `db:"id" json:"id"`
	Name         string               `db:"name" json:"name"`
	DisplayName  string               `db:"display_name" json:"display_name"`
	Type         OptionType           `db:"type" json:"type"`
	Required     bool                 `db:"required" json:"required"`
	DisplayOrder int                  `db:"display_order" json:"display_order"`
	Values       []CustomizationValue `db:"-" json:"values"`
}

// CustomizationValue is one selectable value of an option
type CustomizationValue struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	OptionID        uuid.UUID       `db:"option_id" json:"option_id"`
	Value           string          `db:"value" json:"value"`
	DisplayName     string          `db:"display_name" json:"display_name"`
	AdditionalPrice decimal.Decimal `db:"additional_price" json:"additional_price"`
	HexColor        *string         `db:"hex_color" json:"hex_color,omitempty"`
	ImageURL        *string         `db:"image_url" json:"image_url,omitempty"`
	Available       bool            `db:"available" json:"available"`
	DisplayOrder    int             `db:"display_order" json:"display_order"`
}

// ProductDetail is a product with the options configured for it
type ProductDetail struct {
	Product
	Options []CustomizationOption `json:"options"`
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	CategorySlug string
	Search       string
	Limit        int
	Offset       int
}

// NewsletterSubscriber is an email address on the mailing list
type NewsletterSubscriber struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Name           *string    `db:"name" json:"name,omitempty"`
	Token          string     `db:"token" json:"-"`
	Subscribed     bool       `db:"subscribed" json:"subscribed"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
}

// ContactMessage is a contact-form submission relayed by email
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"max=40"`
	Subject string `json:"subject,omitempty" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}
