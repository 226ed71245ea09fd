package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d1 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
)

// Three products with D1<D2<D3 and P1>P2>P3, listed the way the site does
// (newest first).
func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "p3", Name: "Toustovač", Price: 499, URL: "https://example.cz/3", DateAdded: d3, Position: 1},
		{ID: "p1", Name: "Kávovar", Price: 8990, URL: "https://example.cz/1", DateAdded: d1, Position: 2},
		{ID: "p2", Name: "Mixér", Price: 1299, URL: "https://example.cz/2", DateAdded: d2, Position: 3},
	}
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestSortProducts(t *testing.T) {
	products := sampleProducts()

	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(SortProducts(products, SortNewest)))
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(SortProducts(products, SortOldest)))
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(SortProducts(products, SortPriceAsc)))
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(SortProducts(products, SortPriceDesc)))

	assert.Equal(t, []string{"p3", "p1", "p2"}, ids(products), "input must not be reordered")
}

func TestSortProductsUnknownValuesLast(t *testing.T) {
	products := []models.Product{
		{ID: "a", Price: models.PriceUnknown, Position: 1},
		{ID: "b", Price: 200, DateAdded: d1, Position: 2},
		{ID: "c", Price: 100, Position: 3},
		{ID: "d", Price: 300, DateAdded: d2, Position: 4},
	}

	assert.Equal(t, []string{"d", "b", "a", "c"}, ids(SortProducts(products, SortNewest)))
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(SortProducts(products, SortOldest)))
	assert.Equal(t, []string{"c", "b", "d", "a"}, ids(SortProducts(products, SortPriceAsc)))
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(SortProducts(products, SortPriceDesc)))
}

func TestSortProductsUndatedUsesPosition(t *testing.T) {
	products := []models.Product{
		{ID: "second", Position: 2},
		{ID: "first", Position: 1},
		{ID: "third", Position: 3},
	}

	assert.Equal(t, []string{"first", "second", "third"}, ids(SortProducts(products, SortNewest)))
	assert.Equal(t, []string{"third", "second", "first"}, ids(SortProducts(products, SortOldest)))
}

func TestFilterByPrice(t *testing.T) {
	products := append(sampleProducts(), models.Product{ID: "unknown", Price: models.PriceUnknown, Position: 4})
	min, max := 500.0, 9000.0
	low := 1299.0

	assert.Len(t, FilterByPrice(products, nil, nil), 4)
	assert.Equal(t, []string{"p1", "p2"}, ids(FilterByPrice(products, &min, nil)))
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids(FilterByPrice(products, nil, &max)))
	assert.Equal(t, []string{"p3", "p2"}, ids(FilterByPrice(products, nil, &low)))
	assert.Equal(t, []string{"p2"}, ids(FilterByPrice(products, &low, &low)))
}

func TestParseSortOrder(t *testing.T) {
	for _, s := range []string{"newest", "oldest", "price_asc", "price_desc"} {
		order, err := ParseSortOrder(s)
		require.NoError(t, err)
		assert.Equal(t, SortOrder(s), order)
	}

	_, err := ParseSortOrder("cheapest")
	assert.Error(t, err)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0\u00a0Kč"},
		{499, "499\u00a0Kč"},
		{1299, "1\u00a0299\u00a0Kč"},
		{1299.9, "1\u00a0299,90\u00a0Kč"},
		{1234567, "1\u00a0234\u00a0567\u00a0Kč"},
		{99.999, "100\u00a0Kč"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatPrice(tt.input))
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.ScrapedAt = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

	var first, second bytes.Buffer
	require.NoError(t, r.Render(&first, sampleProducts(), opts))
	require.NoError(t, r.Render(&second, sampleProducts(), opts))

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestRenderEmbedsDataAndInitialOrder(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Order = SortPriceAsc
	require.NoError(t, r.Render(&buf, sampleProducts(), opts))
	html := buf.String()

	re := regexp.MustCompile(`(?s)<script type="application/json" id="wishlist-data">(.*?)</script>`)
	m := re.FindStringSubmatch(html)
	require.Len(t, m, 2)

	var embedded []models.Product
	require.NoError(t, json.Unmarshal([]byte(m[1]), &embedded))
	assert.Equal(t, sampleProducts(), embedded)

	cardOrder := regexp.MustCompile(`data-id="([^"]+)"`).FindAllStringSubmatch(html, -1)
	require.Len(t, cardOrder, 3)
	assert.Equal(t, "p3", cardOrder[0][1])
	assert.Equal(t, "p2", cardOrder[1][1])
	assert.Equal(t, "p1", cardOrder[2][1])

	assert.Contains(t, html, `data-order="price_asc"`)
	assert.Contains(t, html, `data-sort="price_asc" class="active"`)
	assert.Contains(t, html, "compareBy")
	for _, order := range []string{"newest", "oldest", "price_asc", "price_desc"} {
		assert.Contains(t, html, `data-sort="`+order+`"`)
	}
}

func TestRenderEscapesProductText(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	products := []models.Product{{
		ID:       "x",
		Name:     `<script>alert("x")</script>`,
		URL:      "https://example.cz/x",
		Price:    models.PriceUnknown,
		Position: 1,
	}}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, products, DefaultOptions()))
	html := buf.String()

	assert.NotContains(t, html, `<script>alert`)
	assert.Contains(t, html, "Cena není k dispozici")
	assert.Contains(t, html, "Pořadí v seznamu: 1")
}

func TestRenderEmpty(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, nil, DefaultOptions()))
	assert.Contains(t, buf.String(), `id="wishlist-data">[]</script>`)
	assert.Contains(t, buf.String(), "Položek: 0")
}

func TestWriteFile(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wishlist.html")
	require.NoError(t, r.WriteFile(path, sampleProducts(), DefaultOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Contains(t, string(data), "Kávovar")
}
