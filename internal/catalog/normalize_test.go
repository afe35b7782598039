package catalog

import (
	"context"
	"testing"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FullItem(t *testing.T) {
	item := jx.Raw(`{
		"asin": "B0TEST1234",
		"product_title": "Wireless Earbuds",
		"product_price": "$49.99",
		"product_star_rating": "4.5 out of 5 stars",
		"product_num_reviews": "1,234",
		"product_availability": "In Stock",
		"is_prime": true,
		"product_category": "Electronics",
		"product_url": "https://example.com/dp/B0TEST1234",
		"product_photo": "https://example.com/img.jpg",
		"product_features": ["Bluetooth 5.3", "ANC"],
		"product_description": "Great sound.",
		"product_brand": "Acme"
	}`)

	p, err := Normalize(item)
	require.NoError(t, err)

	assert.Equal(t, "B0TEST1234", p.ASIN)
	assert.Equal(t, "Wireless Earbuds", p.Title)
	assert.InDelta(t, 49.99, p.Price, 1e-9)
	assert.InDelta(t, 4.5, p.Rating, 1e-9)
	assert.Equal(t, 1234, p.ReviewCount)
	assert.Equal(t, "In Stock", p.Availability)
	assert.True(t, p.PrimeEligible)
	assert.Equal(t, []string{"Bluetooth 5.3", "ANC"}, p.Features)
	assert.Equal(t, "Acme", p.Brand)
	assert.False(t, p.LastUpdated.IsZero())
}

func TestNormalize_MissingFieldsDefault(t *testing.T) {
	p, err := Normalize(jx.Raw(`{"asin": "B0MINIMAL"}`))
	require.NoError(t, err)

	assert.Equal(t, "B0MINIMAL", p.ASIN)
	assert.Empty(t, p.Title)
	assert.Zero(t, p.Price)
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.ReviewCount)
	assert.False(t, p.PrimeEligible)
	assert.Empty(t, p.Features)
}

func TestNormalize_ToleratesWrongTypes(t *testing.T) {
	// Numbers where strings are expected, nulls, and junk in the feature
	// list must not abort the item.
	item := jx.Raw(`{
		"asin": "B0MIXED",
		"product_price": 19.99,
		"product_star_rating": null,
		"product_num_reviews": 42,
		"is_prime": "yes",
		"product_features": ["ok", 7, null, "also ok"]
	}`)

	p, err := Normalize(item)
	require.NoError(t, err)

	assert.InDelta(t, 19.99, p.Price, 1e-9)
	assert.Zero(t, p.Rating)
	assert.Equal(t, 42, p.ReviewCount)
	assert.False(t, p.PrimeEligible)
	assert.Equal(t, []string{"ok", "also ok"}, p.Features)
}

func TestNormalize_StructuralFailure(t *testing.T) {
	_, err := Normalize(jx.Raw(`["not", "an", "object"]`))
	assert.Error(t, err)

	_, err = Normalize(jx.Raw(`{"asin": `))
	assert.Error(t, err)
}

func TestNormalizeBatch_DropsMalformedKeepsOrder(t *testing.T) {
	items := []jx.Raw{
		jx.Raw(`{"asin": "A1", "product_title": "first"}`),
		jx.Raw(`{"asin": broken`),
		jx.Raw(`{"asin": "A3", "product_title": "third"}`),
	}

	got := NormalizeBatch(context.Background(), items, 10)

	require.Len(t, got, 2)
	assert.Equal(t, "A1", got[0].ASIN)
	assert.Equal(t, "A3", got[1].ASIN)
}

func TestNormalizeBatch_DropsItemsWithoutIdentifier(t *testing.T) {
	items := []jx.Raw{
		jx.Raw(`{"asin": "A1"}`),
		jx.Raw(`{"product_title": "no identifier"}`),
		jx.Raw(`{"asin": ""}`),
	}

	got := NormalizeBatch(context.Background(), items, 10)

	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0].ASIN)
}

func TestNormalizeBatch_TruncatesBeforeNormalization(t *testing.T) {
	items := make([]jx.Raw, 0, 10)
	for range 3 {
		items = append(items, jx.Raw(`{"asin": "KEPT"}`))
	}
	for range 7 {
		// Items past the cut must never be parsed, so broken JSON there
		// is harmless.
		items = append(items, jx.Raw(`{broken`))
	}

	got := NormalizeBatch(context.Background(), items, 3)

	require.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, "KEPT", p.ASIN)
	}
}
