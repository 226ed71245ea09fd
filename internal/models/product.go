package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceUnknown marks a product whose price could not be read from the card.
const PriceUnknown = -1.0

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	URL       string    `json:"url"`
	ImageURL  string    `json:"image_url,omitempty"`
	DateAdded time.Time `json:"date_added"`
	Position  int       `json:"position"`
}

// IDFromURL derives a stable identifier for products the site does not tag
// with an id of their own.
func IDFromURL(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

func (p *Product) HasPrice() bool {
	return p.Price >= 0
}

func (p *Product) HasDate() bool {
	return !p.DateAdded.IsZero()
}

func (p *Product) Validate() []string {
	var errors []string

	if p.ID == "" {
		errors = append(errors, "ID is required")
	}

	if p.Name == "" {
		errors = append(errors, "Name is required")
	}

	if p.URL == "" {
		errors = append(errors, "URL is required")
	}

	if p.Price < 0 && p.Price != PriceUnknown {
		errors = append(errors, "Invalid price")
	}

	return errors
}
