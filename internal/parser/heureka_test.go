package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://account.heureka.cz/oblibene"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		hasError bool
	}{
		{"Spaces and currency", "1 299 Kč", 1299, false},
		{"With od prefix", "od 1 299 Kč", 1299, false},
		{"Non-breaking space", "12\u00a0499\u00a0Kč", 12499, false},
		{"Narrow no-break space", "3\u202f990 Kč", 3990, false},
		{"Plain number", "899", 899, false},
		{"Decimal comma", "1 299,90 Kč", 1299.90, false},
		{"Dot thousands", "2.499 Kč", 2499, false},
		{"Dot thousands with decimal comma", "2.499,50 Kč", 2499.50, false},
		{"Comma thousands with decimal dot", "1,299.00 CZK", 1299, false},
		{"Dash suffix", "1 299,- Kč", 1299, false},
		{"Range takes the lower bound", "od 1 299 do 2 000 Kč", 1299, false},
		{"No digits", "Cena není k dispozici", 0, true},
		{"Empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParsePrice(tt.input)
			if tt.hasError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoPrice))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 0.001)
		})
	}
}

func TestParseWishlist(t *testing.T) {
	html := `<html><body>
	<section class="c-favourites">
		<article class="c-favourites-card" data-product-id="1001" data-added="2024-05-10">
			<a href="https://kavovary.heureka.cz/delonghi-magnifica/" title="DeLonghi Magnifica S">
				<img class="c-favourites-card__image" src="https://im9.cz/a.jpg" alt="">
			</a>
			<strong class="c-favourites-card__price">od 8 990 Kč</strong>
		</article>
		<article class="c-favourites-card">
			<a href="/sluchatka/sony-wh-1000xm5/" title="Sony WH-1000XM5">
				<img class="c-favourites-card__image" src="data:image/gif;base64,R0l" data-src="//im9.cz/b.jpg">
			</a>
			<time datetime="2024-06-01T10:00:00Z">1. 6. 2024</time>
		</article>
		<article class="c-favourites-card">
			<strong class="c-favourites-card__price">1 000 Kč</strong>
		</article>
		<article class="c-favourites-card" data-product-id="1001">
			<a href="https://kavovary.heureka.cz/delonghi-magnifica/" title="DeLonghi Magnifica S"></a>
		</article>
	</section>
	</body></html>`

	p := NewHeurekaParser()
	products, errs := p.ParseWishlist(html, baseURL)

	require.Len(t, products, 2)
	require.Len(t, errs, 2)
	assert.True(t, errors.Is(errs[0], ErrMissingField))
	assert.Contains(t, errs[1].Error(), "duplicate product 1001")

	first := products[0]
	assert.Equal(t, "1001", first.ID)
	assert.Equal(t, "DeLonghi Magnifica S", first.Name)
	assert.Equal(t, 8990.0, first.Price)
	assert.Equal(t, "https://kavovary.heureka.cz/delonghi-magnifica/", first.URL)
	assert.Equal(t, "https://im9.cz/a.jpg", first.ImageURL)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), first.DateAdded)
	assert.Equal(t, 1, first.Position)

	second := products[1]
	assert.Equal(t, models.IDFromURL("https://account.heureka.cz/sluchatka/sony-wh-1000xm5/"), second.ID)
	assert.Equal(t, "https://account.heureka.cz/sluchatka/sony-wh-1000xm5/", second.URL)
	assert.Equal(t, "https://im9.cz/b.jpg", second.ImageURL)
	assert.Equal(t, models.PriceUnknown, second.Price)
	assert.False(t, second.HasPrice())
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), second.DateAdded)
	assert.Equal(t, 2, second.Position)
}

func TestParseWishlistMissingPriceKeepsBatch(t *testing.T) {
	html := `
	<article class="c-favourites-card"><a href="/a/" title="A"></a><strong class="c-favourites-card__price">100 Kč</strong></article>
	<article class="c-favourites-card"><a href="/b/" title="B"></a></article>
	<article class="c-favourites-card"><a href="/c/" title="C"></a><strong class="c-favourites-card__price">300 Kč</strong></article>`

	products, errs := NewHeurekaParser().ParseWishlist(html, baseURL)

	assert.Empty(t, errs)
	require.Len(t, products, 3)
	assert.Equal(t, 100.0, products[0].Price)
	assert.Equal(t, models.PriceUnknown, products[1].Price)
	assert.Equal(t, 300.0, products[2].Price)
}

func TestParseWishlistNameFallbacks(t *testing.T) {
	html := `
	<article class="c-favourites-card"><a href="/a/"><span>  Mixér   Bosch </span></a></article>
	<article class="c-favourites-card"><h3 class="c-favourites-card__title">Lednice</h3><a href="/b/"><img src="/b.jpg"></a></article>`

	products, errs := NewHeurekaParser().ParseWishlist(html, baseURL)

	assert.Empty(t, errs)
	require.Len(t, products, 2)
	assert.Equal(t, "Mixér Bosch", products[0].Name)
	assert.Equal(t, "Lednice", products[1].Name)
	assert.Equal(t, "https://account.heureka.cz/b.jpg", products[1].ImageURL)
}

func TestParseWishlistDataIDAndUnusableCard(t *testing.T) {
	html := `<article class="c-favourites-card" data-id="77">
		<a href="https://www.heureka.cz/x/" title="X"></a>
		<strong class="c-favourites-card__price">1 299 Kč</strong>
	</article>
	<article class="c-favourites-card"><span>nothing here</span></article>`

	products, errs := NewHeurekaParser().ParseWishlist(html, baseURL)
	require.Len(t, products, 1)
	assert.Equal(t, "77", products[0].ID)
	assert.Equal(t, 1299.0, products[0].Price)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMissingField)
}

func TestNextPageURL(t *testing.T) {
	p := NewHeurekaParser()

	tests := []struct {
		name     string
		html     string
		expected string
		found    bool
	}{
		{
			name:     "rel next relative",
			html:     `<nav><a rel="next" href="?page=2">Další</a></nav>`,
			expected: "https://account.heureka.cz/oblibene?page=2",
			found:    true,
		},
		{
			name:     "pagination button absolute",
			html:     `<a class="c-pagination__button--next" href="https://account.heureka.cz/oblibene?page=3">›</a>`,
			expected: "https://account.heureka.cz/oblibene?page=3",
			found:    true,
		},
		{
			name:  "disabled next",
			html:  `<a rel="next" href="?page=2" aria-disabled="true">Další</a>`,
			found: false,
		},
		{
			name:  "no pagination",
			html:  `<div>single page</div>`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := p.NextPageURL(tt.html, baseURL)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}
