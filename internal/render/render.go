package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/heureka-wishlist/internal/fsutil"
	"github.com/maltedev/heureka-wishlist/internal/models"
)

//go:embed templates/wishlist.html.tmpl
var pageTemplate string

const nbsp = "\u00a0"

type Options struct {
	Title     string
	Order     SortOrder
	ScrapedAt time.Time
}

func DefaultOptions() Options {
	return Options{
		Title: "Můj seznam přání z Heureky",
		Order: SortNewest,
	}
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("wishlist").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type sortButton struct {
	Order  SortOrder
	Label  string
	Active bool
}

type cardView struct {
	ID       string
	Name     string
	URL      string
	ImageURL string
	Price    string
	Added    string
}

type pageData struct {
	Title     string
	Order     SortOrder
	ScrapedAt string
	Count     int
	Buttons   []sortButton
	Cards     []cardView
	Data      template.JS
}

var buttonLabels = map[SortOrder]string{
	SortNewest:    "Nejnovější první",
	SortOldest:    "Nejstarší první",
	SortPriceAsc:  "Nejlevnější první",
	SortPriceDesc: "Nejdražší první",
}

// Render writes the wishlist page. The output depends only on products and
// opts, so identical input yields identical bytes.
func (r *Renderer) Render(w io.Writer, products []models.Product, opts Options) error {
	if opts.Order == "" {
		opts.Order = SortNewest
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	if products == nil {
		products = []models.Product{}
	}

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}

	page := pageData{
		Title: opts.Title,
		Order: opts.Order,
		Count: len(products),
		// json.Marshal escapes <, > and &, which keeps the payload inert inside
		// the script element.
		Data: template.JS(data),
	}

	if !opts.ScrapedAt.IsZero() {
		page.ScrapedAt = opts.ScrapedAt.UTC().Format("2. 1. 2006 15:04 MST")
	}

	for _, order := range sortOrders {
		page.Buttons = append(page.Buttons, sortButton{
			Order:  order,
			Label:  buttonLabels[order],
			Active: order == opts.Order,
		})
	}

	for _, p := range SortProducts(products, opts.Order) {
		page.Cards = append(page.Cards, newCardView(p))
	}

	if err := r.tmpl.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	return nil
}

func (r *Renderer) WriteFile(path string, products []models.Product, opts Options) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, products, opts); err != nil {
		return err
	}

	if err := fsutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func newCardView(p models.Product) cardView {
	card := cardView{
		ID:       p.ID,
		Name:     p.Name,
		URL:      p.URL,
		ImageURL: p.ImageURL,
		Price:    "Cena není k dispozici",
		Added:    fmt.Sprintf("Pořadí v seznamu: %d", p.Position),
	}

	if p.HasPrice() {
		card.Price = "od" + nbsp + FormatPrice(p.Price)
	}

	if p.HasDate() {
		card.Added = "Přidáno " + p.DateAdded.UTC().Format("2. 1. 2006")
	}

	return card
}

// FormatPrice renders a price the way Czech shops print it, e.g. "1 299 Kč"
// or "1 299,90 Kč" with non-breaking spaces.
func FormatPrice(price float64) string {
	whole := math.Floor(price)
	cents := int(math.Round((price - whole) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(int64(whole), 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(nbsp)
		}
		b.WriteRune(d)
	}

	if cents > 0 {
		fmt.Fprintf(&b, ",%02d", cents)
	}

	b.WriteString(nbsp + "Kč")
	return b.String()
}
