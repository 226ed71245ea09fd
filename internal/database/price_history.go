package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/heureka-wishlist/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS wishlist_price_history (
	id          BIGSERIAL PRIMARY KEY,
	product_id  TEXT NOT NULL,
	name        TEXT NOT NULL,
	url         TEXT NOT NULL,
	price       NUMERIC(12, 2),
	position    INTEGER NOT NULL,
	date_added  TIMESTAMPTZ,
	scraped_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (product_id, scraped_at)
);
CREATE INDEX IF NOT EXISTS idx_wishlist_price_history_product
	ON wishlist_price_history (product_id, scraped_at DESC);`

const insertPricePoint = `
	INSERT INTO wishlist_price_history
		(product_id, name, url, price, position, date_added, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (product_id, scraped_at) DO NOTHING`

// PricePoint is one archived observation of a wishlist item. Price is nil
// when the shop showed no price.
type PricePoint struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     *float64  `json:"price"`
	Position  int       `json:"position"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type PriceHistory struct {
	db *DB
}

func NewPriceHistory(db *DB) *PriceHistory {
	return &PriceHistory{db: db}
}

func (h *PriceHistory) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create price history schema: %w", err)
	}
	return nil
}

// Record archives one scrape. All rows go in one batch inside a single
// transaction, so a scrape is stored completely or not at all.
func (h *PriceHistory) Record(ctx context.Context, scrapedAt time.Time, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := buildBatch(scrapedAt, products)

	return h.db.Transaction(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := range products {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert price point for %s: %w", products[i].ID, err)
			}
		}
		return results.Close()
	})
}

// History returns the archived observations of one product, newest first.
func (h *PriceHistory) History(ctx context.Context, productID string, limit int) ([]PricePoint, error) {
	query := `
		SELECT product_id, name, price::float8, position, scraped_at
		FROM wishlist_price_history
		WHERE product_id = $1
		ORDER BY scraped_at DESC
		LIMIT $2`

	rows, err := h.db.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	points := []PricePoint{}
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.Position, &p.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price history: %w", err)
	}

	return points, nil
}

func buildBatch(scrapedAt time.Time, products []models.Product) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(insertPricePoint,
			p.ID, p.Name, p.URL, nullablePrice(p), p.Position, nullableDate(p), scrapedAt.UTC())
	}
	return batch
}

func nullablePrice(p models.Product) *float64 {
	if !p.HasPrice() {
		return nil
	}
	price := p.Price
	return &price
}

func nullableDate(p models.Product) *time.Time {
	if !p.HasDate() {
		return nil
	}
	d := p.DateAdded.UTC()
	return &d
}
