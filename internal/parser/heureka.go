package parser

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/heureka-wishlist/internal/models"
)

const CardSelector = "article.c-favourites-card"

var (
	priceSelectors = []string{
		".c-favourites-card__price",
		"[data-testid='price']",
		".c-price",
	}
	nameSelectors = []string{
		".c-favourites-card__title",
		".c-favourites-card__name",
		"h2, h3",
	}
	nextPageSelectors = []string{
		`a[rel="next"]`,
		"a.c-pagination__button--next",
		"a.c-pagination__link--next",
		"li.c-pagination__item--next a",
	}
	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2. 1. 2006",
		"2.1.2006",
	}
)

type HeurekaParser struct{}

func NewHeurekaParser() *HeurekaParser {
	return &HeurekaParser{}
}

// ParseWishlist extracts one product per favourites card. Cards that lack a
// name or link are skipped and reported in the returned error slice; a card
// without a readable price keeps the record with models.PriceUnknown.
func (p *HeurekaParser) ParseWishlist(html string, baseURL string) ([]models.Product, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, []error{fmt.Errorf("failed to parse HTML: %w", err)}
	}

	base, _ := url.Parse(baseURL)

	var (
		products []models.Product
		errs     []error
		seen     = make(map[string]bool)
	)

	doc.Find(CardSelector).Each(func(i int, card *goquery.Selection) {
		product, err := p.parseCard(card, base)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", i+1, err))
			return
		}

		if seen[product.ID] {
			errs = append(errs, fmt.Errorf("card %d: duplicate product %s", i+1, product.ID))
			return
		}
		seen[product.ID] = true

		product.Position = len(products) + 1
		products = append(products, *product)
	})

	return products, errs
}

func (p *HeurekaParser) parseCard(card *goquery.Selection, base *url.URL) (*models.Product, error) {
	link := card.Find("a[href]").First()
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingField)
	}

	name := strings.TrimSpace(link.AttrOr("title", ""))
	if name == "" {
		name = firstText(card, nameSelectors)
	}
	if name == "" {
		name = collapseSpaces(link.Text())
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}

	product := &models.Product{
		Name:  name,
		URL:   resolve(base, href),
		Price: models.PriceUnknown,
	}

	product.ID = p.extractID(card, link)
	if product.ID == "" {
		product.ID = models.IDFromURL(product.URL)
	}

	if img := card.Find("img").First(); img.Length() > 0 {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			src = strings.TrimSpace(img.AttrOr("data-src", ""))
		}
		if src != "" {
			product.ImageURL = resolve(base, src)
		}
	}

	if priceText := firstText(card, priceSelectors); priceText != "" {
		if price, err := ParsePrice(priceText); err == nil {
			product.Price = price
		}
	}

	product.DateAdded = p.extractDate(card)

	return product, nil
}

// NextPageURL returns the absolute URL of the next wishlist page, if the
// listing links one.
func (p *HeurekaParser) NextPageURL(html string, baseURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	base, _ := url.Parse(baseURL)

	for _, selector := range nextPageSelectors {
		link := doc.Find(selector).First()
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || href == "#" {
			continue
		}
		if _, disabled := link.Attr("aria-disabled"); disabled {
			continue
		}
		return resolve(base, href), true
	}

	return "", false
}

func (p *HeurekaParser) extractID(card, link *goquery.Selection) string {
	for _, attr := range []string{"data-product-id", "data-id"} {
		if id := strings.TrimSpace(card.AttrOr(attr, "")); id != "" {
			return id
		}
		if id := strings.TrimSpace(link.AttrOr(attr, "")); id != "" {
			return id
		}
	}
	return ""
}

func (p *HeurekaParser) extractDate(card *goquery.Selection) time.Time {
	candidates := []string{
		card.Find("time[datetime]").First().AttrOr("datetime", ""),
		card.AttrOr("data-added", ""),
		card.Find("time").First().Text(),
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.UTC()
			}
		}
	}

	return time.Time{}
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := collapseSpaces(s.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
