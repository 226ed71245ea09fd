package parser

import (
	"errors"

	"github.com/maltedev/heureka-wishlist/internal/models"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrNoPrice      = errors.New("no price found")
)

type Parser interface {
	ParseWishlist(html string, baseURL string) ([]models.Product, []error)
	NextPageURL(html string, baseURL string) (string, bool)
}
