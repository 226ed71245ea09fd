package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/heureka-wishlist/internal/models"
)

func TestBuildBatch(t *testing.T) {
	scrapedAt := time.Date(2024, 11, 20, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	added := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	products := []models.Product{
		{ID: "1", Name: "Kávovar", URL: "https://www.heureka.cz/p/1", Price: 8990, Position: 1, DateAdded: added},
		{ID: "2", Name: "Mixér", URL: "https://www.heureka.cz/p/2", Price: models.PriceUnknown, Position: 2},
	}

	batch := buildBatch(scrapedAt, products)
	require.Equal(t, 2, batch.Len())

	first := batch.QueuedQueries[0]
	assert.Equal(t, insertPricePoint, first.SQL)
	require.Len(t, first.Arguments, 7)
	assert.Equal(t, "1", first.Arguments[0])
	assert.Equal(t, "Kávovar", first.Arguments[1])
	require.NotNil(t, first.Arguments[3])
	assert.Equal(t, 8990.0, *first.Arguments[3].(*float64))
	assert.Equal(t, 1, first.Arguments[4])
	assert.Equal(t, added, *first.Arguments[5].(*time.Time))
	assert.Equal(t, scrapedAt.UTC(), first.Arguments[6])

	second := batch.QueuedQueries[1]
	assert.Nil(t, second.Arguments[3].(*float64))
	assert.Nil(t, second.Arguments[5].(*time.Time))
}

func TestRecordEmptyIsNoop(t *testing.T) {
	h := NewPriceHistory(nil)
	assert.NoError(t, h.Record(context.Background(), time.Now(), nil))
}

func TestNewWithoutURL(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
